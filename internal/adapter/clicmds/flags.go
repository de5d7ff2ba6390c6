package clicmds

import (
	"fmt"

	"browser-query/internal/adapter/locator/describe"
	"browser-query/internal/domain/entity"
	"browser-query/internal/usecase/query"

	"github.com/dlclark/regexp2"
	"github.com/urfave/cli/v2"
)

var selectorFlags = []string{"css", "xpath", "id", "name", "link-text", "describe"}

func PageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "url",
			Usage:    "page to open",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "static",
			Usage: "fetch the page over HTTP and query the parsed HTML instead of a browser",
		},
		&cli.BoolFlag{
			Name:  "headless",
			Usage: "run the browser without a window",
			Value: true,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "how long to wait; 0 checks once",
		},
		&cli.StringFlag{
			Name:  "screenshot",
			Usage: "write a JPEG of the page here when the command fails",
		},
	}
}

func SelectorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "css", Usage: "css selector"},
		&cli.StringFlag{Name: "xpath", Usage: "xpath expression"},
		&cli.StringFlag{Name: "id", Usage: "element id"},
		&cli.StringFlag{Name: "name", Usage: "name attribute"},
		&cli.StringFlag{Name: "link-text", Usage: "exact link text"},
		&cli.StringFlag{Name: "describe", Usage: "plain language description (needs OPENROUTER_API_KEY)"},
		&cli.StringFlag{Name: "text", Usage: "keep elements whose text contains this"},
		&cli.StringFlag{Name: "text-regexp", Usage: "keep elements whose text matches this ECMAScript regexp"},
		&cli.BoolFlag{Name: "visible", Usage: "keep only visible (or with =false, invisible) elements"},
	}
}

func ConditionFlags() []cli.Flag {
	return append(SelectorFlags(),
		&cli.StringFlag{Name: "url-is", Usage: "wait for the current URL to become this"},
		&cli.StringFlag{Name: "title", Usage: "wait for the page title to be this"},
		&cli.StringFlag{Name: "title-regexp", Usage: "wait for the page title to match this"},
		&cli.StringFlag{Name: "unless-css", Usage: "fail as soon as this css selector matches"},
		&cli.StringFlag{Name: "message", Usage: "replace the first line of the timeout error"},
	)
}

// selectorFromFlags returns the selector named by the first set selector
// flag, or nil when none is set.
func selectorFromFlags(c *cli.Context) (entity.Selector, error) {
	var picked []string
	for _, name := range selectorFlags {
		if c.IsSet(name) {
			picked = append(picked, name)
		}
	}
	if len(picked) == 0 {
		return nil, nil
	}
	if len(picked) > 1 {
		return nil, fmt.Errorf("only one of --%s may be given, got %v", selectorFlags, picked)
	}

	v := c.String(picked[0])
	switch picked[0] {
	case "css":
		return entity.CSS(v), nil
	case "xpath":
		return entity.XPath(v), nil
	case "id":
		return entity.ID(v), nil
	case "name":
		return entity.Name(v), nil
	case "link-text":
		return entity.LinkText(v), nil
	}
	return entity.Criteria{describe.Key: v}, nil
}

func filterFromFlags(c *cli.Context) (entity.Criteria, error) {
	filter := entity.Criteria{}
	if c.IsSet("text") && c.IsSet("text-regexp") {
		return nil, fmt.Errorf("--text and --text-regexp are mutually exclusive")
	}
	if c.IsSet("text") {
		filter[query.KeyText] = c.String("text")
	}
	if c.IsSet("text-regexp") {
		re, err := regexp2.Compile(c.String("text-regexp"), regexp2.ECMAScript)
		if err != nil {
			return nil, fmt.Errorf("invalid --text-regexp: %w", err)
		}
		filter[query.KeyText] = re
	}
	if c.IsSet("visible") {
		filter[query.KeyVisible] = c.Bool("visible")
	}
	if len(filter) == 0 {
		return nil, nil
	}
	return filter, nil
}

// conditionFromFlags combines every given condition flag with ALL.
func conditionFromFlags(c *cli.Context, r *query.Registry) (query.Spec, error) {
	spec := query.Spec{}

	sel, err := selectorFromFlags(c)
	if err != nil {
		return nil, err
	}
	filter, err := filterFromFlags(c)
	if err != nil {
		return nil, err
	}
	if sel != nil {
		q, err := r.NewQuery(sel, filter, 0)
		if err != nil {
			return nil, err
		}
		spec[query.CondElement] = q
	} else if filter != nil {
		return nil, fmt.Errorf("--text, --text-regexp and --visible need a selector")
	}

	if c.IsSet("url-is") {
		spec[query.CondURL] = c.String("url-is")
	}
	if c.IsSet("title") && c.IsSet("title-regexp") {
		return nil, fmt.Errorf("--title and --title-regexp are mutually exclusive")
	}
	if c.IsSet("title") {
		spec[query.CondTitle] = c.String("title")
	}
	if c.IsSet("title-regexp") {
		re, err := regexp2.Compile(c.String("title-regexp"), regexp2.ECMAScript)
		if err != nil {
			return nil, fmt.Errorf("invalid --title-regexp: %w", err)
		}
		spec[query.CondTitle] = re
	}
	if c.IsSet("unless-css") {
		spec[query.CondUnless] = entity.CSS(c.String("unless-css"))
	}

	if len(spec) == 0 {
		return nil, fmt.Errorf("no condition given")
	}
	return spec, nil
}
