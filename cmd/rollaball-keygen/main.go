// Command rollaball-keygen is the vendor tool that creates the signing key
// pair and issues activation keys for player machine codes.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/CloudNativeWorks/rollaball-license/internal/cli"
	"github.com/CloudNativeWorks/rollaball-license/rblicense"
	"github.com/CloudNativeWorks/rollaball-license/rblicense/issuance"
)

const privateKeyFileName = "private.pem"

var errNoRegistry = errors.New("no registry configured: set --registry to postgres or mongo")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	v      *viper.Viper
	out    io.Writer
	logger *zap.Logger
	now    func() time.Time
}

func newRootCommand(out io.Writer) *cobra.Command {
	a := &app{v: cli.NewViper("ROLLABALL_KEYGEN"), out: out, now: time.Now}

	root := &cobra.Command{
		Use:               "rollaball-keygen",
		Short:             "Create signing keys and issue RollABall activation keys",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default: ./rollaball-keygen.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("registry", "", "issuance registry backend: postgres or mongo")
	flags.String("dsn", "", "registry connection string")
	flags.String("mongo-database", "rollaball", "MongoDB database holding the registry")
	flags.String("product", rblicense.ProductID, "product id")
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		a.genkeyCommand(),
		a.issueCommand(),
		a.issuedCommand(),
		a.pruneCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := cli.ReadConfig(a.v, a.v.GetString("config"), "rollaball-keygen", "."); err != nil {
		return err
	}
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	logger, err := cli.NewLogger(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *app) genkeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate an RSA signing key and the matching license_public_key.xml",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.genkey(a.v.GetString("out"), a.v.GetInt("bits"), a.v.GetBool("force"))
		},
	}
	cmd.Flags().String("out", ".", "output directory")
	cmd.Flags().Int("bits", 2048, "RSA key size")
	cmd.Flags().Bool("force", false, "overwrite an existing private key")
	return cmd
}

func (a *app) genkey(dir string, bits int, force bool) error {
	privPath := filepath.Join(dir, privateKeyFileName)
	pubPath := filepath.Join(dir, rblicense.PublicKeyResourceName+".xml")
	if _, err := os.Stat(privPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to replace it)", privPath)
	}

	key, err := rblicense.GenerateRSAKeyPair(bits)
	if err != nil {
		return err
	}
	privPEM, err := rblicense.EncodePrivateKeyPEM(key)
	if err != nil {
		return err
	}
	pubXML, err := rblicense.MarshalPublicKeyXML(&key.PublicKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(pubXML+"\n"), 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}

	a.logger.Info("generated signing key",
		zap.Int("bits", bits),
		zap.String("private_key", privPath),
		zap.String("public_key", pubPath),
	)
	fmt.Fprintf(a.out, "private key: %s\npublic key:  %s\n", privPath, pubPath)
	return nil
}

func (a *app) issueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an activation key for a machine code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.issue(cmd.Context())
		},
	}
	flags := cmd.Flags()
	flags.String("machine", "", "machine code from the player's machine_code.txt")
	flags.String("expires", "", "expiry as YYYY-MM-DD or YYYY-MM-DDTHH:MM:SSZ (default: never)")
	flags.String("customer", "", "customer reference recorded in the registry")
	flags.String("private-key", privateKeyFileName, "PEM private key used for signing")
	flags.String("out", "", "also write the key to this file")
	return cmd
}

func (a *app) issue(ctx context.Context) error {
	machine := strings.TrimSpace(a.v.GetString("machine"))
	if machine == "" {
		return errors.New("--machine is required")
	}
	if len(machine) != 52 {
		a.logger.Warn("machine code has an unexpected length", zap.Int("length", len(machine)))
	}

	pemData, err := os.ReadFile(a.v.GetString("private-key"))
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}
	signer, err := rblicense.ParsePrivateKeyPEM(pemData)
	if err != nil {
		return err
	}

	payload := rblicense.ActivationPayload{
		Product:   a.v.GetString("product"),
		Machine:   machine,
		ExpiresAt: strings.TrimSpace(a.v.GetString("expires")),
	}
	issuedAt := a.now().UTC()
	key, err := rblicense.NewIssuer(signer, rblicense.WithIssuerClock(func() time.Time { return issuedAt })).Issue(payload)
	if err != nil {
		return err
	}

	if out := a.v.GetString("out"); out != "" {
		if err := os.WriteFile(out, []byte(key), 0o600); err != nil {
			return fmt.Errorf("write key: %w", err)
		}
	}
	fmt.Fprintln(a.out, key)

	if a.v.GetString("registry") == "" {
		return nil
	}
	reg, closeFn, err := a.openRegistry(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	record := issuance.IssuedKey{
		ID:            uuid.NewString(),
		Product:       payload.Product,
		Machine:       machine,
		Customer:      a.v.GetString("customer"),
		ActivationKey: key,
		IssuedAt:      issuedAt,
	}
	if payload.ExpiresAt != "" {
		expires, _ := rblicense.ParseExpiry(payload.ExpiresAt)
		record.ExpiresAt = &expires
	}
	if _, err := reg.Put(ctx, record); err != nil {
		return err
	}
	a.logger.Info("recorded issued key", zap.String("id", record.ID), zap.String("machine", machine))
	return nil
}

func (a *app) issuedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issued",
		Short: "List issued activation keys from the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.issued(cmd.Context())
		},
	}
	cmd.Flags().String("machine", "", "only keys issued for this machine code")
	return cmd
}

func (a *app) issued(ctx context.Context) error {
	reg, closeFn, err := a.openRegistry(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	var keys []issuance.IssuedKey
	if machine := a.v.GetString("machine"); machine != "" {
		keys, err = reg.ListByMachine(ctx, machine)
	} else {
		keys, err = reg.List(ctx, a.v.GetString("product"))
	}
	if err != nil {
		return err
	}
	return a.printIssued(keys)
}

func (a *app) printIssued(keys []issuance.IssuedKey) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMACHINE\tCUSTOMER\tISSUED\tEXPIRES")
	for _, k := range keys {
		expires := "never"
		if k.ExpiresAt != nil {
			expires = humanize.Time(*k.ExpiresAt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			k.ID, k.Machine, k.Customer, humanize.Time(k.IssuedAt), expires)
	}
	return tw.Flush()
}

func (a *app) pruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired keys from the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			reg, closeFn, err := a.openRegistry(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := reg.PruneExpired(ctx, a.v.GetString("product"), a.now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "removed %s expired %s\n", humanize.Comma(int64(n)), plural(n, "key", "keys"))
			return nil
		},
	}
}

// openRegistry connects to the configured registry backend. The returned
// func releases the connection.
func (a *app) openRegistry(ctx context.Context) (issuance.Registry, func(), error) {
	dsn := a.v.GetString("dsn")
	switch kind := a.v.GetString("registry"); kind {
	case "":
		return nil, nil, errNoRegistry
	case "postgres":
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		reg, err := issuance.NewPostgresRegistry(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return reg, pool.Close, nil
	case "mongo":
		client, err := mongo.Connect(options.Client().ApplyURI(dsn))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		disconnect := func() { _ = client.Disconnect(context.Background()) }
		reg, err := issuance.NewMongoRegistry(ctx, client.Database(a.v.GetString("mongo-database")))
		if err != nil {
			disconnect()
			return nil, nil, err
		}
		return reg, disconnect, nil
	default:
		return nil, nil, fmt.Errorf("unknown registry %q: want postgres or mongo", kind)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
