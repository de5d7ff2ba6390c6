package prompts

import (
	_ "embed"
)

//go:embed describe.txt
var DescribeSystemPrompt string

//go:embed describe_user.txt
var DescribeUserTemplate string
