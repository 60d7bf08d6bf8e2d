// Command docstorectl runs the document store helpers from the command line against the
// backend selected by DOCSTORE_BACKEND.
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cosmosdb-wrapper/internal/docstore"
	"cosmosdb-wrapper/internal/docstore/config"
	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/docstore/domain/repository"
	"cosmosdb-wrapper/internal/shared/errors"
	"cosmosdb-wrapper/internal/shared/logger"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// ContainerArgs addresses one container
type ContainerArgs struct {
	Database  string `arg:"" help:"Database name."`
	Container string `arg:"" help:"Container name."`
}

// cli represents all commands and flags.
//
//nolint:vet // for readability
type cli struct {
	Backend string `help:"Override DOCSTORE_BACKEND (cosmos, mongodb, redis, memory)."`
	Debug   bool   `help:"Enable debug logging."`

	Ensure struct {
		ContainerArgs `embed:""`
		PartitionKey string `name:"pk" required:"" help:"Partition-key path, for example /customerId."`
	} `cmd:"" help:"Get or create a database and container."`

	Query struct {
		ContainerArgs `embed:""`
		Text   string   `arg:"" name:"query" help:"Query text, for example 'SELECT * FROM c WHERE c.x = @x'."`
		Params []string `name:"param" short:"p" help:"Query parameter as @name=value; JSON values keep their type."`
	} `cmd:"" help:"Run a cross-partition query."`

	List struct {
		ContainerArgs `embed:""`
	} `cmd:"" help:"Read every item of a container."`

	Get struct {
		ContainerArgs `embed:""`
		ID  string `help:"Item id." xor:"key"`
		URI string `help:"Item uri." xor:"key"`
	} `cmd:"" help:"Look an item up by its unique id or uri."`

	Read struct {
		ContainerArgs `embed:""`
		ID            string `arg:"" help:"Item id."`
		PartitionKey  string `arg:"" name:"pk" help:"Partition-key value."`
		PartitionType string `name:"pk-type" enum:"string,number,bool,null" default:"string" help:"Partition-key value type."`
	} `cmd:"" help:"Point-read an item by id and partition-key value."`

	Upsert struct {
		ContainerArgs `embed:""`
		Document string `arg:"" help:"JSON document, or - to read it from stdin."`
	} `cmd:"" help:"Create or replace an item."`

	Demo struct{} `cmd:"" help:"Run the orders walkthrough against the configured backend."`
}

func main() {
	var flags cli
	kongCtx := kong.Parse(&flags,
		kong.Name("docstorectl"),
		kong.Description("Document store helper CLI."),
		kong.UsageOnError(),
	)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Could not load .env file: %v\n", err)
	}

	level := logrus.WarnLevel
	if flags.Debug {
		level = logrus.DebugLevel
	}
	log := logger.NewLoggerWithOutput(os.Stderr, level, &logrus.TextFormatter{FullTimestamp: true})

	cfg, err := loadConfig(flags.Backend)
	kongCtx.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	module, err := docstore.NewDocstoreModule(ctx, cfg, log, nil)
	kongCtx.FatalIfErrorf(err)

	err = execute(ctx, kongCtx.Command(), &flags, module, os.Stdin, os.Stdout)
	stop()
	kongCtx.FatalIfErrorf(err)
}

// execute runs the command and then stops the module, reporting both errors
func execute(ctx context.Context, cmd string, flags *cli, module *docstore.DocstoreModule, in io.Reader, out io.Writer) error {
	runErr := run(ctx, cmd, flags, module, in, out)
	return stderrors.Join(runErr, module.Stop(context.Background()))
}

func loadConfig(backend string) (*config.Config, error) {
	if backend != "" {
		if err := os.Setenv("DOCSTORE_BACKEND", backend); err != nil {
			return nil, err
		}
	}
	return config.LoadConfig()
}

// run executes the parsed command and writes its JSON result to out. Reads from a missing
// database or container print an empty result.
func run(ctx context.Context, cmd string, flags *cli, module *docstore.DocstoreModule, in io.Reader, out io.Writer) error {
	uc := module.Usecase

	switch cmd {
	case "ensure <database> <container>":
		db, err := uc.ResolveDatabase(ctx, module.Client, flags.Ensure.Database)
		if err != nil {
			return err
		}
		container, err := uc.ResolveContainer(ctx, db, flags.Ensure.Container, flags.Ensure.PartitionKey)
		if err != nil {
			return err
		}
		return write(out, map[string]string{
			"database":         db.Name(),
			"container":        container.Name(),
			"partitionKeyPath": container.PartitionKeyPath(),
		})

	case "query <database> <container> <query>":
		params, err := parseParams(flags.Query.Params)
		if err != nil {
			return err
		}
		c, err := openContainer(ctx, module, flags.Query.ContainerArgs)
		if errors.IsNotFound(err) {
			return write(out, []model.Document{})
		}
		if err != nil {
			return err
		}
		docs, err := uc.QueryItems(ctx, c, model.NewQuery(flags.Query.Text, params...))
		if err != nil {
			return err
		}
		return write(out, docs)

	case "list <database> <container>":
		c, err := openContainer(ctx, module, flags.List.ContainerArgs)
		if errors.IsNotFound(err) {
			return write(out, []model.Document{})
		}
		if err != nil {
			return err
		}
		docs, err := uc.ReadAllItems(ctx, c)
		if err != nil {
			return err
		}
		return write(out, docs)

	case "get <database> <container>":
		if flags.Get.ID == "" && flags.Get.URI == "" {
			return fmt.Errorf("one of --id or --uri is required")
		}
		c, err := openContainer(ctx, module, flags.Get.ContainerArgs)
		if errors.IsNotFound(err) {
			return write(out, nil)
		}
		if err != nil {
			return err
		}
		var doc model.Document
		if flags.Get.URI != "" {
			doc, err = uc.GetItemByURI(ctx, c, flags.Get.URI)
		} else {
			doc, err = uc.GetItemByID(ctx, c, flags.Get.ID)
		}
		if err != nil {
			return err
		}
		return write(out, doc)

	case "read <database> <container> <id> <pk>":
		pk, err := model.ParsePartitionKey(flags.Read.PartitionKey, flags.Read.PartitionType)
		if err != nil {
			return err
		}
		c, err := openContainer(ctx, module, flags.Read.ContainerArgs)
		if errors.IsNotFound(err) {
			return write(out, nil)
		}
		if err != nil {
			return err
		}
		doc, err := uc.ReadItem(ctx, c, flags.Read.ID, pk)
		if err != nil {
			return err
		}
		return write(out, doc)

	case "upsert <database> <container> <document>":
		raw := []byte(flags.Upsert.Document)
		if flags.Upsert.Document == "-" {
			var err error
			if raw, err = io.ReadAll(in); err != nil {
				return err
			}
		}
		var doc model.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("document is not a JSON object: %w", err)
		}
		c, err := openContainer(ctx, module, flags.Upsert.ContainerArgs)
		if err != nil {
			return err
		}
		stored, err := uc.CreateItem(ctx, c, doc)
		if err != nil {
			return err
		}
		return write(out, stored)

	case "demo":
		return demo(ctx, module, out)
	}

	return fmt.Errorf("unknown command %q", cmd)
}

func openContainer(ctx context.Context, module *docstore.DocstoreModule, args ContainerArgs) (repository.Container, error) {
	db, err := module.Usecase.OpenDatabase(ctx, module.Client, args.Database)
	if err != nil {
		return nil, err
	}
	return module.Usecase.OpenContainer(ctx, db, args.Container)
}

// parseParams turns "@name=value" pairs into query parameters. Values that parse as JSON keep
// their JSON type; anything else is a string.
func parseParams(pairs []string) ([]model.QueryParameter, error) {
	params := make([]model.QueryParameter, 0, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || !strings.HasPrefix(name, "@") || len(name) < 2 {
			return nil, fmt.Errorf("parameter %q must look like @name=value", pair)
		}

		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		params = append(params, model.Param(name, value))
	}
	return params, nil
}

func write(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
