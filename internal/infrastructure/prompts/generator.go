package prompts

import (
	"bytes"
	"strings"
	"text/template"
)

type DescribePromptData struct {
	Description string
	HTML        string
	Scoped      bool
}

func GenerateDescribePrompt(baseTemplate string, data DescribePromptData) (string, error) {
	tmpl, err := template.New("describe").Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return strings.TrimSpace(buf.String()), nil
}
