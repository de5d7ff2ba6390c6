package entity

import (
	"context"
	"fmt"
)

// Element is an opaque handle to a live UI element. Only the element source
// that produced it knows its concrete type.
type Element any

// Selector is any value a registered locator matcher may claim: a string,
// Criteria, a function selector or a By.
type Selector any

// Criteria is a structured selector. Strategy keys (css, xpath, ...) pick the
// locator, the remaining keys (text, visible, ...) feed the filter registry.
type Criteria map[string]any

// Strategy names a native locator strategy understood by element sources.
type Strategy string

// revive:disable:var-naming
const (
	StrategyCSS             Strategy = "css"
	StrategyXPath           Strategy = "xpath"
	StrategyID              Strategy = "id"
	StrategyName            Strategy = "name"
	StrategyClassName       Strategy = "className"
	StrategyTagName         Strategy = "tagName"
	StrategyLinkText        Strategy = "linkText"
	StrategyPartialLinkText Strategy = "partialLinkText"
	StrategyJS              Strategy = "js"
)

// Strategies lists every strategy in the order structured criteria are probed.
var Strategies = []Strategy{
	StrategyCSS,
	StrategyXPath,
	StrategyID,
	StrategyName,
	StrategyClassName,
	StrategyTagName,
	StrategyLinkText,
	StrategyPartialLinkText,
	StrategyJS,
}

func (s Strategy) String() string {
	return string(s)
}

// By is a native locator.
type By struct {
	Strategy Strategy
	Value    string
}

func (b By) String() string {
	return fmt.Sprintf("%s %s", b.Strategy, b.Value)
}

func CSS(v string) By             { return By{Strategy: StrategyCSS, Value: v} }
func XPath(v string) By           { return By{Strategy: StrategyXPath, Value: v} }
func ID(v string) By              { return By{Strategy: StrategyID, Value: v} }
func Name(v string) By            { return By{Strategy: StrategyName, Value: v} }
func ClassName(v string) By       { return By{Strategy: StrategyClassName, Value: v} }
func TagName(v string) By         { return By{Strategy: StrategyTagName, Value: v} }
func LinkText(v string) By        { return By{Strategy: StrategyLinkText, Value: v} }
func PartialLinkText(v string) By { return By{Strategy: StrategyPartialLinkText, Value: v} }
func JS(v string) By              { return By{Strategy: StrategyJS, Value: v} }

// Parent locates the direct parent of the scope element.
func Parent() By {
	return XPath("..")
}

// SelectorFunc resolves elements itself. It receives the scope of the lookup
// (nil for the whole page) and returns an Element, a []Element or nil.
type SelectorFunc func(ctx context.Context, scope Element) (any, error)

// NamedFunc is a SelectorFunc with a human readable name used in descriptions.
type NamedFunc struct {
	Name string
	Fn   SelectorFunc
}

// TextPredicate is a custom text filter.
type TextPredicate func(text string) bool
