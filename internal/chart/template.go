package chart

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTemplate = errors.New("unknown chart template")

const DefaultTemplateName = "full"

// Template is a named, versioned instruction text sent with the recording.
// The set of templates is closed and their text never changes at run time;
// a wording change ships as a new Version.
type Template struct {
	Name        string
	Version     int
	Description string
	text        string
}

func (t Template) Text() string {
	return t.text
}

// ID identifies the exact instruction text, e.g. "full@v1".
func (t Template) ID() string {
	return fmt.Sprintf("%s@v%d", t.Name, t.Version)
}

func (t Template) IsZero() bool {
	return t.Name == ""
}

var templates = []Template{
	{
		Name:        "full",
		Version:     1,
		Description: "S/O/A/P with C/C, O/S, MOT, P/I and ROS subsections",
		text:        fullTemplateV1,
	},
	{
		Name:        "minimal",
		Version:     1,
		Description: "S/O/A/P headings only",
		text:        minimalTemplateV1,
	},
}

// Templates returns the available templates in display order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// LookupTemplate finds a template by name, case-insensitively.
func LookupTemplate(name string) (Template, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, t := range templates {
		if t.Name == key {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w %q (available: %s)", ErrUnknownTemplate, name, strings.Join(TemplateNames(), ", "))
}

func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for _, t := range templates {
		names = append(names, t.Name)
	}
	return names
}

const fullTemplateV1 = `당신은 '제세현한의원' 전용 진료 차트 작성 AI입니다.
녹음된 진료 대화를 분석하여 아래의 **[출력 양식]**을 엄격하게 준수하여 작성하십시오.
없는 내용을 지어내지 말고, 대화에서 근거를 찾아 채우십시오.

[출력 양식]

S]
C/C
#1 [주소증1]
[세부 증상 내용]

#2 [주소증2]
[세부 증상 내용]

O/S
#1 [시기]
#2 [시기]

MOT
#1 [원인/배경]
#2 [원인/배경]

P/I
#1 [관련 과거력/치료력]
#2 [관련 과거력/치료력]

ROS
[항목]: [내용]

O]
(의사가 구두로 명확히 언급한 소견만 작성)

A]
(의사가 구두로 명확히 언급한 진단명만 작성)

P]
(향후 치료 계획 요약)

---
[주의] 내용은 개조식으로 작성. S 내부 항목 줄바꿈 필수.
`

const minimalTemplateV1 = `당신은 한의원 진료 차트 작성 AI입니다.
녹음된 진료 대화를 분석하여 아래 S.O.A.P. 형식으로만 작성하십시오.
없는 내용을 지어내지 말고, 대화에서 언급되지 않은 항목은 비워 두십시오.

S]
(환자가 호소한 증상)

O]
(의사가 구두로 언급한 소견)

A]
(의사가 언급한 진단명)

P]
(향후 치료 계획)
`
