// Command paladin manages a local profile workspace: a self-signed
// identity document, its sealed private key and a signed status feed.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/paladin-privacy/go-profiles/internal/config"
	"github.com/paladin-privacy/go-profiles/internal/platform/privacylog"
	"github.com/paladin-privacy/go-profiles/internal/store"
	"github.com/paladin-privacy/go-profiles/pkg/keychain"
	"github.com/paladin-privacy/go-profiles/pkg/keystore"
	"github.com/paladin-privacy/go-profiles/pkg/models"
	"github.com/paladin-privacy/go-profiles/pkg/profile"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if os.Args[1] == "-version" || os.Args[1] == "--version" {
		fmt.Printf("paladin version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	cli := &cliEnv{}
	var err error
	switch os.Args[1] {
	case "init":
		err = cli.runInit(os.Args[2:])
	case "show":
		err = cli.runShow(os.Args[2:])
	case "set":
		err = cli.runSet(os.Args[2:])
	case "get":
		err = cli.runGet(os.Args[2:])
	case "sign":
		err = cli.runSign(os.Args[2:])
	case "filter":
		err = cli.runFilter(os.Args[2:])
	case "friend":
		err = cli.runFriend(os.Args[2:])
	case "post":
		err = cli.runPost(os.Args[2:])
	case "feed":
		err = cli.runFeed(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "paladin: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: paladin <command> [flags]

commands:
  init     create a new profile and seal its private key
  show     print the public document
  set      set a profile field
  get      read a profile field
  sign     sign pending changes
  filter   export a redacted copy for a disclosure level
  friend   add or remove a friend (friend add|remove)
  post     post a status to the signed feed
  feed     print the verified status feed`)
}

type cliEnv struct {
	cfg    config.Config
	store  *store.Store
	logger *slog.Logger
}

func (c *cliEnv) setup(fs *flag.FlagSet, args []string) (passphrase string, err error) {
	configPath := fs.String("config", "", "path to config.yaml (optional)")
	dataDir := fs.String("data-dir", "", "data directory override")
	pass := fs.String("passphrase", "", "key passphrase (or PALADIN_PASSPHRASE)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	c.cfg = config.LoadFromPath(*configPath)
	if *dataDir != "" {
		c.cfg.DataDir = *dataDir
	}
	c.store = store.New(c.cfg.DataDir)
	c.logger = newLogger(c.cfg.LogLevel)

	passphrase = *pass
	if passphrase == "" {
		passphrase = os.Getenv("PALADIN_PASSPHRASE")
	}
	return passphrase, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(privacylog.WrapHandler(handler))
}

func (c *cliEnv) runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	nickname := fs.String("nickname", "", "public nickname")
	recovery := fs.Bool("recovery-phrase", false, "generate a recovery phrase as the passphrase")
	passphrase, err := c.setup(fs, args)
	if err != nil {
		return err
	}
	if c.store.HasProfile() {
		return fmt.Errorf("profile already exists in %s", c.cfg.DataDir)
	}
	if *recovery {
		phrase, err := keystore.NewRecoveryPhrase()
		if err != nil {
			return err
		}
		passphrase = phrase
		fmt.Printf("recovery phrase (keep it safe): %s\n", phrase)
	}
	if passphrase == "" {
		return fmt.Errorf("a passphrase is required (use -passphrase, -recovery-phrase or PALADIN_PASSPHRASE)")
	}

	p := profile.New()
	if err := p.Initialize(); err != nil {
		return err
	}
	if *nickname != "" {
		if err := p.SetField(profile.FieldNickname, *nickname, models.Public()); err != nil {
			return err
		}
	}
	if err := p.Sign(); err != nil {
		return err
	}

	document, privateKey, err := p.Pack()
	if err != nil {
		return err
	}
	if err := c.store.SavePrivateKey(privateKey, passphrase); err != nil {
		return err
	}
	if err := c.store.SaveProfile(p); err != nil {
		return err
	}

	id, _ := p.ID()
	c.logger.Info("profile created", "profile_id", id, "bytes", len(document))
	fmt.Printf("created profile %s in %s\n", keychain.ShortID(id), c.cfg.DataDir)
	return nil
}

func (c *cliEnv) runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	if _, err := c.setup(fs, args); err != nil {
		return err
	}
	p, err := c.store.LoadProfile("")
	if err != nil {
		return err
	}
	raw, err := p.Export()
	if err != nil {
		return err
	}
	return printJSON(raw)
}

func (c *cliEnv) runSet(args []string) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	key := fs.String("key", "", "field name")
	value := fs.String("value", "", "field value")
	visibility := fs.String("visibility", "", "public | private | friends")
	passphrase, err := c.setup(fs, args)
	if err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("-key is required")
	}
	p, err := c.store.LoadProfile(passphrase)
	if err != nil {
		return err
	}

	mode := *visibility
	if mode == "" {
		if _, ok := p.Visibility(*key); !ok {
			mode = c.cfg.DefaultVisibility
		}
	}
	switch mode {
	case "":
		err = p.SetField(*key, *value)
	case "public":
		err = p.SetField(*key, *value, models.Public())
	case "private":
		err = p.SetField(*key, *value, models.Private())
	case "friends":
		err = p.SetField(*key, *value, models.ForFriends(p.Friends()))
	default:
		return fmt.Errorf("unknown visibility %q", mode)
	}
	if err != nil {
		return err
	}
	if err := p.Sign(); err != nil {
		return err
	}
	if err := c.store.SaveProfile(p); err != nil {
		return err
	}
	c.logger.Info("field updated", "field", *key, "revision", p.Revision())
	return nil
}

func (c *cliEnv) runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	key := fs.String("key", "", "field name")
	passphrase, err := c.setup(fs, args)
	if err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("-key is required")
	}
	p, err := c.store.LoadProfile(passphrase)
	if err != nil {
		return err
	}
	value, err := p.GetField(*key, p)
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func (c *cliEnv) runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	passphrase, err := c.setup(fs, args)
	if err != nil {
		return err
	}
	p, err := c.store.LoadProfile(passphrase)
	if err != nil {
		return err
	}
	if err := p.Sign(); err != nil {
		return err
	}
	if err := c.store.SaveProfile(p); err != nil {
		return err
	}
	c.logger.Info("profile signed", "revision", p.Revision())
	return nil
}

func (c *cliEnv) runFilter(args []string) error {
	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	visibility := fs.String("visibility", "public", "disclosure level of the copy")
	out := fs.String("out", "", "output file (default stdout)")
	passphrase, err := c.setup(fs, args)
	if err != nil {
		return err
	}
	p, err := c.store.LoadProfile(passphrase)
	if err != nil {
		return err
	}
	filtered, err := p.FilterFor(models.Visibility{Mode: models.VisibilityMode(*visibility)})
	if err != nil {
		return err
	}
	raw, err := filtered.Export()
	if err != nil {
		return err
	}
	if *out == "" {
		return printJSON(raw)
	}
	return os.WriteFile(*out, raw, 0o644)
}

func (c *cliEnv) runFriend(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: paladin friend add|remove -file <profile.json>")
	}
	action := args[0]
	fs := flag.NewFlagSet("friend "+action, flag.ContinueOnError)
	file := fs.String("file", "", "the friend's exported profile document")
	passphrase, err := c.setup(fs, args[1:])
	if err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}
	raw, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	other, err := profile.FromData(raw)
	if err != nil {
		return fmt.Errorf("friend document: %w", err)
	}
	p, err := c.store.LoadProfile(passphrase)
	if err != nil {
		return err
	}

	switch action {
	case "add":
		err = p.AddFriend(other)
	case "remove":
		err = p.RemoveFriend(other)
	default:
		return fmt.Errorf("unknown friend action %q", action)
	}
	if err != nil {
		return err
	}
	if err := p.Sign(); err != nil {
		return err
	}
	if err := c.store.SaveProfile(p); err != nil {
		return err
	}
	otherID, _ := other.ID()
	c.logger.Info("friend list updated", "friend_id", otherID, "action", action)
	return nil
}

func (c *cliEnv) runPost(args []string) error {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	message := fs.String("message", "", "status message")
	passphrase, err := c.setup(fs, args)
	if err != nil {
		return err
	}
	if *message == "" {
		return fmt.Errorf("-message is required")
	}
	p, err := c.store.LoadProfile(passphrase)
	if err != nil {
		return err
	}
	kc := p.Keychain()
	if kc == nil {
		return fmt.Errorf("a passphrase is required to post")
	}
	f, err := c.store.LoadFeed(kc, models.Settings{ChunkSize: c.cfg.FeedChunkSize})
	if err != nil {
		return err
	}
	status, err := f.Post(*message)
	if err != nil {
		return err
	}
	if err := c.store.SaveFeed(f); err != nil {
		return err
	}
	c.logger.Info("status posted", "status_id", status.ID)
	return nil
}

func (c *cliEnv) runFeed(args []string) error {
	fs := flag.NewFlagSet("feed", flag.ContinueOnError)
	if _, err := c.setup(fs, args); err != nil {
		return err
	}
	p, err := c.store.LoadProfile("")
	if err != nil {
		return err
	}
	kc := p.Keychain()
	if kc == nil {
		return fmt.Errorf("profile has no public key")
	}
	f, err := c.store.LoadFeed(kc, models.Settings{ChunkSize: c.cfg.FeedChunkSize})
	if err != nil {
		return err
	}
	for _, status := range f.Statuses() {
		fmt.Printf("%s  %s\n", status.CreatedOn, status.Message)
	}
	return nil
}

func printJSON(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}
