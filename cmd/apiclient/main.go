// Package main is the entrypoint for the apiclient command line.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/morezero/apiclient/internal/app"
	"github.com/morezero/apiclient/internal/config"
	"github.com/morezero/apiclient/pkg/api"
	"github.com/morezero/apiclient/pkg/db"
	"github.com/morezero/apiclient/pkg/transport"
)

const usage = `Usage: apiclient [command]
       apiclient get <path> [key=value ...]       GET a path; extra args become query params.
       apiclient post <path> [json|-]              POST a JSON body (argument or stdin).
       apiclient login <username> <password>       Log in and store the token.
       apiclient examples list [page] [size] [kw]  List examples.
       apiclient upload <file>                     Upload a file.
       apiclient migrate up                        Create the credential tables.

Commands:
  get, delete, head, options <path> [key=value ...]
                  Send a request and print the unwrapped data.
  post, put, patch <path> [json|-]
                  Send a JSON body and print the unwrapped data.
  login <username> <password>
                  Authenticate and store the token for CREDENTIAL_PROFILE.
  logout          Forget the stored token.
  whoami          Show the current user.
  examples list|get|create|update|delete
                  Manage example records.
  upload <file>   Upload a file as multipart form data.
  migrate up      Run database migrations (postgres backend).
  migrate down    Drop the credential tables.
  migrate status  Show current migration status.
  ensure-db [name] Create database (default name: apiclient) on the DATABASE_URL host.
  clear           Truncate stored credentials; schema preserved.

Environment: API_BASE_URL (default http://localhost:9090), API_TIMEOUT (ms),
CREDENTIAL_BACKEND (file, memory, postgres), CREDENTIAL_PROFILE, DATABASE_URL,
COMMS_URL, METRICS_FILE (Prometheus text dump written on exit), LOG_LEVEL.
`

// errUsage marks argument errors that should print the usage text.
var errUsage = errors.New("invalid arguments")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stdin); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n%s", err, usage)
			os.Exit(2)
		}
		log.Fatalf("apiclient: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, stdin io.Reader) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "", "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	case "migrate":
		if len(args) < 2 {
			return fmt.Errorf("%w: migrate requires a subcommand (up, down, status)", errUsage)
		}
		return runMigrate(ctx, args[1], stdout)
	case "ensure-db":
		dbName := "apiclient"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		return runEnsureDB(ctx, dbName, stdout)
	case "clear":
		return runClear(ctx, stdout)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app.SetupLogging(cfg.LogLevel, os.Stderr)

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "get", "delete", "head", "options":
		return runQuery(ctx, a, strings.ToUpper(cmd), args[1:], stdout)
	case "post", "put", "patch":
		return runSend(ctx, a, strings.ToUpper(cmd), args[1:], stdout, stdin)
	case "login":
		if len(args) != 3 {
			return fmt.Errorf("%w: login requires <username> <password>", errUsage)
		}
		res, err := a.Session.Login(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		return printJSON(stdout, res.UserInfo)
	case "logout":
		if err := a.Session.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Logged out.")
		return nil
	case "whoami":
		if !a.Session.IsLoggedIn(ctx) {
			return errors.New("not logged in")
		}
		info, err := a.API.User.GetUserInfo(ctx)
		if err != nil {
			return err
		}
		return printValue(stdout, info)
	case "examples":
		return runExamples(ctx, a.API.Example, args[1:], stdout)
	case "upload":
		if len(args) != 2 {
			return fmt.Errorf("%w: upload requires <file>", errUsage)
		}
		return runUpload(ctx, a.API.File, args[1], stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func runQuery(ctx context.Context, a *app.App, method string, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: %s requires <path>", errUsage, strings.ToLower(method))
	}
	params, err := parseParams(args[1:])
	if err != nil {
		return err
	}
	req := newRequest(method, args[0], nil, params)
	data, err := a.Client.Request(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(stdout, data)
}

func runSend(ctx context.Context, a *app.App, method string, args []string, stdout io.Writer, stdin io.Reader) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: %s requires <path> [json|-]", errUsage, strings.ToLower(method))
	}
	var body json.RawMessage
	if len(args) == 2 {
		raw := []byte(args[1])
		if args[1] == "-" {
			b, err := io.ReadAll(stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			raw = b
		}
		if !json.Valid(raw) {
			return fmt.Errorf("%w: body is not valid JSON", errUsage)
		}
		body = raw
	}
	var data any
	if body != nil {
		data = body
	}
	out, err := a.Client.Request(ctx, newRequest(method, args[0], data, nil))
	if err != nil {
		return err
	}
	return printJSON(stdout, out)
}

func runExamples(ctx context.Context, svc *api.ExampleService, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: examples requires a subcommand (list, get, create, update, delete)", errUsage)
	}
	switch args[0] {
	case "list":
		var p api.ListParams
		var err error
		if len(args) > 1 {
			if p.Page, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("%w: page must be a number", errUsage)
			}
		}
		if len(args) > 2 {
			if p.PageSize, err = strconv.Atoi(args[2]); err != nil {
				return fmt.Errorf("%w: size must be a number", errUsage)
			}
		}
		if len(args) > 3 {
			p.Keyword = args[3]
		}
		page, err := svc.List(ctx, p)
		if err != nil {
			return err
		}
		return printValue(stdout, page)
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("%w: examples get requires <id>", errUsage)
		}
		ex, err := svc.Get(ctx, args[1])
		if err != nil {
			return err
		}
		return printValue(stdout, ex)
	case "create":
		if len(args) != 2 {
			return fmt.Errorf("%w: examples create requires <json>", errUsage)
		}
		var in api.ExampleInput
		if err := json.Unmarshal([]byte(args[1]), &in); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		ex, err := svc.Create(ctx, in)
		if err != nil {
			return err
		}
		return printValue(stdout, ex)
	case "update":
		if len(args) != 3 {
			return fmt.Errorf("%w: examples update requires <id> <json>", errUsage)
		}
		var in api.ExampleInput
		if err := json.Unmarshal([]byte(args[2]), &in); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		ok, err := svc.Update(ctx, args[1], in)
		if err != nil {
			return err
		}
		return printValue(stdout, ok)
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("%w: examples delete requires <id>", errUsage)
		}
		ok, err := svc.Delete(ctx, args[1])
		if err != nil {
			return err
		}
		return printValue(stdout, ok)
	default:
		return fmt.Errorf("%w: unknown examples subcommand %q", errUsage, args[0])
	}
}

func runUpload(ctx context.Context, svc *api.FileService, path string, stdout io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	res, err := svc.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	return printValue(stdout, res)
}

func runMigrate(ctx context.Context, sub string, stdout io.Writer) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	switch sub {
	case "up":
		files, err := app.LoadMigrations(cfg.MigrationPath)
		if err != nil {
			return fmt.Errorf("load migrations: %w", err)
		}
		if err := db.RunMigrations(ctx, pool, files); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		fmt.Fprintf(stdout, "Applied %d migrations.\n", len(files))
		return nil
	case "status":
		files, err := app.LoadMigrations(cfg.MigrationPath)
		if err != nil {
			return fmt.Errorf("load migrations: %w", err)
		}
		return db.MigrationStatus(ctx, pool, files, stdout)
	case "down":
		return db.MigrationDown(ctx, pool, stdout)
	default:
		return fmt.Errorf("%w: unknown migrate subcommand %q (use up, down, status)", errUsage, sub)
	}
}

func runClear(ctx context.Context, stdout io.Writer) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.ClearCredentials(ctx, pool); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	fmt.Fprintln(stdout, "Credentials cleared.")
	return nil
}

func runEnsureDB(ctx context.Context, dbName string, stdout io.Writer) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	// Replace path with target database name; query (e.g. sslmode) is kept on u.RawQuery.
	u.Path = "/" + dbName
	if err := db.EnsureDatabase(ctx, u.String()); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Database %q is ready.\n", dbName)
	return nil
}

func loadDBConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	app.SetupLogging(cfg.LogLevel, os.Stderr)
	return cfg, nil
}

// parseParams turns key=value arguments into query parameters.
func parseParams(args []string) (url.Values, error) {
	if len(args) == 0 {
		return nil, nil
	}
	params := url.Values{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: query param %q must be key=value", errUsage, arg)
		}
		params.Add(k, v)
	}
	return params, nil
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintf(w, "%s\n", raw)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func printValue(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return printJSON(w, raw)
}

func newRequest(method, path string, data any, params url.Values) *transport.Request {
	var opts []transport.RequestOption
	if params != nil {
		opts = append(opts, transport.WithParams(params))
	}
	return transport.NewRequest(method, path, data, opts...)
}
