package clicmds

import (
	"context"
	"fmt"
	"io"
	"os"

	"browser-query/internal/application/port/output"
	"browser-query/internal/di"
	"browser-query/internal/domain/entity"
	"browser-query/internal/infrastructure/env"
	"browser-query/internal/infrastructure/userinteraction"
	"browser-query/internal/usecase/query"

	"github.com/urfave/cli/v2"
)

// Runner carries what the commands share. A nil Logger means a log file per
// run; a nil Config reads the environment.
type Runner struct {
	Out    io.Writer
	Logger output.LoggerPort
	Config output.ConfigPort
}

func NewApp(r *Runner) *cli.App {
	if r.Out == nil {
		r.Out = os.Stdout
	}

	app := cli.NewApp()
	app.Name = "query"
	app.Usage = "find elements and wait for page conditions"
	app.Writer = r.Out
	app.Commands = []*cli.Command{
		{
			Name:    "find",
			Aliases: []string{"f"},
			Usage:   "print the first matching element",
			Action:  r.Find,
			Flags:   append(PageFlags(), SelectorFlags()...),
		},
		{
			Name:    "find-all",
			Aliases: []string{"fa"},
			Usage:   "print every matching element",
			Action:  r.FindAll,
			Flags:   append(PageFlags(), SelectorFlags()...),
		},
		{
			Name:   "exists",
			Usage:  "exit non-zero unless an element matches now",
			Action: r.Exists,
			Flags:  append(PageFlags(), SelectorFlags()...),
		},
		{
			Name:    "wait",
			Aliases: []string{"w"},
			Usage:   "wait until every given condition holds",
			Action:  r.Wait,
			Flags:   append(PageFlags(), ConditionFlags()...),
		},
		{
			Name:    "reload-until",
			Aliases: []string{"ru"},
			Usage:   "reload the page until every given condition holds",
			Action:  r.ReloadUntil,
			Flags:   append(PageFlags(), ConditionFlags()...),
		},
	}
	return app
}

type session struct {
	ctx       context.Context
	container *di.Container
	console   *userinteraction.Console
}

func (r *Runner) open(c *cli.Context) (*session, error) {
	cfgPort := r.Config
	if cfgPort == nil {
		cfgPort = env.NewEnvService()
	}
	cfg := di.ConfigFromEnv(cfgPort)
	cfg.Static = c.Bool("static")
	if c.IsSet("headless") {
		cfg.BrowserHeadless = c.Bool("headless")
	}
	cfg.LogName = c.Command.Name
	cfg.Logger = r.Logger

	ctx := c.Context
	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &session{ctx: ctx, container: container, console: userinteraction.NewConsole(r.Out)}
	if err := container.Open(ctx, c.String("url")); err != nil {
		container.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) close() {
	s.container.Close()
}

// fail reports err, saving a screenshot first when asked to and possible.
func (s *session) fail(c *cli.Context, err error) error {
	s.console.ShowError(err)

	path := c.String("screenshot")
	if path == "" {
		return cli.Exit("", 1)
	}
	if s.container.Browser == nil {
		s.console.ShowNote("screenshots need a browser; ignoring --screenshot")
		return cli.Exit("", 1)
	}

	shot, shotErr := s.container.Browser.Screenshot(s.ctx)
	if shotErr != nil {
		s.console.ShowNote("screenshot failed: %v", shotErr)
		return cli.Exit("", 1)
	}
	if writeErr := os.WriteFile(path, shot.Data, 0644); writeErr != nil {
		s.console.ShowNote("screenshot failed: %v", writeErr)
		return cli.Exit("", 1)
	}
	s.console.ShowNote("screenshot saved to %s", path)
	return cli.Exit("", 1)
}

func (s *session) describe(els []entity.Element) []entity.ElementInfo {
	src := s.container.Source
	infos := make([]entity.ElementInfo, 0, len(els))
	for i, el := range els {
		info := entity.ElementInfo{Index: i}
		if text, err := src.Text(s.ctx, el); err == nil {
			info.Text = text
		}
		if visible, err := src.Visible(s.ctx, el); err == nil {
			info.Visible = visible
		}
		infos = append(infos, info)
	}
	return infos
}

func (r *Runner) lookup(c *cli.Context) (entity.Selector, entity.Criteria, error) {
	sel, err := selectorFromFlags(c)
	if err != nil {
		return nil, nil, err
	}
	if sel == nil {
		return nil, nil, fmt.Errorf("one of --css, --xpath, --id, --name, --link-text or --describe is required")
	}
	filter, err := filterFromFlags(c)
	if err != nil {
		return nil, nil, err
	}
	return sel, filter, nil
}

func (r *Runner) Find(c *cli.Context) error {
	sel, filter, err := r.lookup(c)
	if err != nil {
		return err
	}
	s, err := r.open(c)
	if err != nil {
		return err
	}
	defer s.close()

	q, err := s.container.Finder.Registry().NewQuery(sel, filter, c.Duration("timeout"))
	if err != nil {
		return err
	}
	s.console.ShowQuery(q.Description())

	el, err := s.container.Finder.Find(s.ctx, q, nil, q.Timeout())
	if err != nil {
		return s.fail(c, err)
	}
	s.console.ShowElements(s.describe([]entity.Element{el}))
	return nil
}

func (r *Runner) FindAll(c *cli.Context) error {
	sel, filter, err := r.lookup(c)
	if err != nil {
		return err
	}
	s, err := r.open(c)
	if err != nil {
		return err
	}
	defer s.close()

	q, err := s.container.Finder.Registry().NewQuery(sel, filter, c.Duration("timeout"))
	if err != nil {
		return err
	}
	s.console.ShowQuery(q.Description())

	els, err := s.container.Finder.FindAll(s.ctx, q, nil, q.Timeout())
	if err != nil {
		return s.fail(c, err)
	}
	s.console.ShowElements(s.describe(els))
	return nil
}

func (r *Runner) Exists(c *cli.Context) error {
	sel, filter, err := r.lookup(c)
	if err != nil {
		return err
	}
	s, err := r.open(c)
	if err != nil {
		return err
	}
	defer s.close()

	if s.container.Finder.Exists(s.ctx, sel, filter) {
		s.console.ShowResult(true, "exists")
		return nil
	}
	s.console.ShowResult(false, "does not exist")
	return cli.Exit("", 1)
}

func (r *Runner) Wait(c *cli.Context) error {
	return r.wait(c, false)
}

func (r *Runner) ReloadUntil(c *cli.Context) error {
	return r.wait(c, true)
}

func (r *Runner) wait(c *cli.Context, reload bool) error {
	s, err := r.open(c)
	if err != nil {
		return err
	}
	defer s.close()

	spec, err := conditionFromFlags(c, s.container.Finder.Registry())
	if err != nil {
		return err
	}
	cond, err := s.container.Finder.Condition(spec)
	if err != nil {
		return err
	}
	s.console.ShowQuery("waiting " + cond.Description)

	var v any
	if reload {
		v, err = s.container.Finder.ReloadUntil(s.ctx, cond, c.Duration("timeout"), c.String("message"))
	} else {
		v, err = s.container.Finder.Wait(s.ctx, cond, c.Duration("timeout"), c.String("message"))
	}
	if err != nil {
		return s.fail(c, err)
	}

	if _, ok := spec[query.CondElement]; ok && len(spec) == 1 {
		s.console.ShowElements(s.describe([]entity.Element{v}))
		return nil
	}
	s.console.ShowResult(true, "satisfied")
	return nil
}
