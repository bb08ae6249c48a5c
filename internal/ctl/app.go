// Package ctl implements docgatectl, the operator tool that mints host
// tokens, prints signed capability URLs and applies database migrations
// using the same configuration as the server.
package ctl

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/docgate/internal/flagx"
	"github.com/dmitrijs2005/docgate/internal/server/auth"
	"github.com/dmitrijs2005/docgate/internal/server/config"
	"github.com/dmitrijs2005/docgate/internal/server/gateway"
	"github.com/dmitrijs2005/docgate/internal/server/models"
	"github.com/dmitrijs2005/docgate/internal/server/repositories/repomanager"
)

var ErrUnknownCommand = errors.New("unknown command")

// migrate is a seam so tests can run without a database.
var migrate = func(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return err
	}
	return rm.RunMigrations(ctx, db)
}

type App struct {
	config *config.Config
	out    io.Writer
}

func NewApp(c *config.Config, out io.Writer) *App {
	return &App{config: c, out: out}
}

const usage = `usage: docgatectl <command> [flags]

commands:
  token    mint a host bearer token (-user, -name, -role, -workspace, -ttl)
  url      print a signed capability URL (-slug, -project, -asset, -doc-key, -purpose, -base)
  migrate  apply database migrations (-d)
  help     show this text

Server flags such as -c, -s, -hmac-secret and -d are honoured.`

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintln(a.out, usage)
		return fmt.Errorf("%w: none given", ErrUnknownCommand)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "token":
		return a.token(rest)
	case "url":
		return a.url(rest)
	case "migrate":
		if err := migrate(ctx, a.config.DatabaseDSN); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(a.out, "migrations applied")
		return nil
	case "help":
		fmt.Fprintln(a.out, usage)
		return nil
	default:
		fmt.Fprintln(a.out, usage)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (a *App) token(args []string) error {
	var (
		p          auth.Principal
		workspaces string
		ttl        time.Duration
	)

	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&p.UserID, "user", "", "user id")
	fs.StringVar(&p.Name, "name", "", "display name")
	fs.StringVar(&p.Role, "role", auth.RoleMember, "role (admin, member, guest)")
	fs.StringVar(&workspaces, "workspace", "", "comma separated workspace slugs; empty means all")
	fs.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-user", "-name", "-role", "-workspace", "-ttl"})); err != nil {
		return err
	}

	if p.UserID == "" {
		return errors.New("token: -user is required")
	}
	for _, w := range strings.Split(workspaces, ",") {
		if w = strings.TrimSpace(w); w != "" {
			p.Workspaces = append(p.Workspaces, w)
		}
	}

	tok, err := auth.GenerateToken(p, []byte(a.config.SecretKey), ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, tok)
	return nil
}

func (a *App) url(args []string) error {
	var (
		scope   models.AssetScope
		docKey  string
		purpose string
		base    string
	)

	fs := flag.NewFlagSet("url", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&scope.WorkspaceSlug, "slug", "", "workspace slug")
	fs.StringVar(&scope.ProjectID, "project", "", "project id")
	fs.StringVar(&scope.AssetID, "asset", "", "asset id")
	fs.StringVar(&docKey, "doc-key", "", "document key")
	fs.StringVar(&purpose, "purpose", string(gateway.PurposeDownload), "download or callback")
	fs.StringVar(&base, "base", a.config.APIBaseURL, "public base URL of the gateway")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-slug", "-project", "-asset", "-doc-key", "-purpose", "-base"})); err != nil {
		return err
	}

	if scope.WorkspaceSlug == "" || scope.ProjectID == "" || scope.AssetID == "" || docKey == "" {
		return errors.New("url: -slug, -project, -asset and -doc-key are required")
	}
	p := gateway.Purpose(purpose)
	if p != gateway.PurposeDownload && p != gateway.PurposeCallback {
		return fmt.Errorf("url: unknown purpose %q", purpose)
	}
	if base == "" {
		base = "http://localhost" + a.config.EndpointAddrHTTP
	}

	signer := gateway.NewSigner(a.config.SignatureSecret)
	fmt.Fprintln(a.out, signer.CapabilityURL(strings.TrimRight(base, "/"), scope, p, docKey))
	return nil
}
