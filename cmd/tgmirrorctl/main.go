package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekv/tgmirror/internal/config"
	"github.com/olekv/tgmirror/internal/storage"
	"github.com/olekv/tgmirror/internal/store"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.tgmirror/config.toml)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: migrate: %v\n", err)
		os.Exit(1)
	}

	switch args[0] {
	case "accounts":
		cmdAccounts(db, *jsonFlag)
	case "contacts":
		requireHandle(args, "contacts")
		cmdContacts(db, args[1], *jsonFlag)
	case "conversations":
		requireHandle(args, "conversations")
		cmdConversations(db, args[1], *jsonFlag)
	case "mark-read":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: tgmirrorctl mark-read <handle> <conversation-id>")
			os.Exit(1)
		}
		cmdMarkRead(db, args[1], args[2])
	case "delete-account":
		requireHandle(args, "delete-account")
		cmdDeleteAccount(db, cfg, args[1])
	case "import-session":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: tgmirrorctl import-session <handle> <session-file>")
			os.Exit(1)
		}
		cmdImportSession(db, args[1], args[2])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: tgmirrorctl [--config <path>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  accounts                          List mirrored accounts")
	fmt.Fprintln(os.Stderr, "  contacts <handle>                 List an account's contacts")
	fmt.Fprintln(os.Stderr, "  conversations <handle>            List an account's conversations")
	fmt.Fprintln(os.Stderr, "  mark-read <handle> <conv-id>      Mark a conversation's messages read")
	fmt.Fprintln(os.Stderr, "  delete-account <handle>           Remove an account, its rows and media")
	fmt.Fprintln(os.Stderr, "  import-session <handle> <file>    Store a session blob for an account")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".tgmirror", "config.toml")
	}
	return config.Load(path)
}

func requireHandle(args []string, cmd string) {
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: tgmirrorctl %s <handle>\n", cmd)
		os.Exit(1)
	}
}

func lookupAccount(db *store.DB, handle string) *store.Account {
	acct, err := db.GetAccountByHandle(handle)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if acct == nil {
		fmt.Fprintf(os.Stderr, "error: no account %q\n", handle)
		os.Exit(1)
	}
	return acct
}

func cmdAccounts(db *store.DB, jsonOut bool) {
	accounts, err := db.ListAccounts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(accounts)
		return
	}
	for _, a := range accounts {
		synced := "never"
		if a.LastSyncedAt > 0 {
			synced = time.UnixMilli(a.LastSyncedAt).Format(time.RFC3339)
		}
		fmt.Printf("%-30s phone=%-15s unread=%-5d last_synced=%s\n", a.Handle, a.Phone, a.UnreadCount, synced)
	}
}

func cmdContacts(db *store.DB, handle string, jsonOut bool) {
	acct := lookupAccount(db, handle)
	contacts, err := db.ListContacts(acct.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(contacts)
		return
	}
	for _, c := range contacts {
		fmt.Printf("%-12d @%-20s %s %s %s\n", c.RemoteUserID, c.Username, c.FirstName, c.LastName, c.Phone)
	}
}

func cmdConversations(db *store.DB, handle string, jsonOut bool) {
	acct := lookupAccount(db, handle)
	convs, err := db.ListConversations(acct.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(convs)
		return
	}
	for _, c := range convs {
		fmt.Printf("%-12d %-8s unread=%-5d %s\n", c.RemoteID, c.Kind, c.UnreadCount, c.Name)
	}
}

func cmdMarkRead(db *store.DB, handle, convID string) {
	acct := lookupAccount(db, handle)
	remoteID, err := strconv.ParseInt(convID, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: bad conversation id %q\n", convID)
		os.Exit(1)
	}
	conv, err := db.GetConversation(acct.ID, remoteID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if conv == nil {
		fmt.Fprintf(os.Stderr, "error: no conversation %d for %q\n", remoteID, handle)
		os.Exit(1)
	}
	if err := db.MarkConversationRead(conv.ID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("marked %q read\n", conv.Name)
}

func cmdDeleteAccount(db *store.DB, cfg *config.Config, handle string) {
	acct := lookupAccount(db, handle)

	if err := db.DeleteAccount(acct.ID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	root, err := storage.NewRoot(cfg.StorageRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := root.RemoveAccount(handle); err != nil {
		fmt.Fprintf(os.Stderr, "error: rows deleted but media removal failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("deleted account %q and its media\n", handle)
}

func cmdImportSession(db *store.DB, handle, file string) {
	blob, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	id, err := db.UpsertAccount(handle, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := db.SaveCredential(id, blob); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("stored session for %q; the daemon will pick it up next tick\n", handle)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
