package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/term"

	"github.com/imkarma/taskboard/internal/api"
	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/config"
	"github.com/imkarma/taskboard/internal/log"
	"github.com/imkarma/taskboard/internal/session"
	"github.com/imkarma/taskboard/internal/view"
)

// loadConfig resolves the config file, the .env overlay and --api-url.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(flagConfig)
	if err != nil {
		return nil, err
	}
	if err := cfg.OverrideAPIURL(flagAPIURL); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openBoard builds the dashboard for cfg. CLI commands log to stderr; pass
// logToFile for the full-screen UI.
func openBoard(cfg *config.Config, logToFile bool, onExpired func()) (*board.Board, io.Closer, error) {
	logPath := ""
	if logToFile {
		logPath = cfg.LogPath()
		if logPath != "" {
			if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
				return nil, nil, fmt.Errorf("create log dir: %w", err)
			}
		}
	}
	logs, err := log.Configure(cfg.LogLevel, logPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	sess, err := openSession(cfg.SessionPath())
	if err != nil {
		logs.Close()
		return nil, nil, err
	}

	mode, err := view.ParseMode(cfg.DefaultView)
	if err != nil {
		mode = view.ModeList
	}

	b, err := board.New(board.Options{
		APIURL:    cfg.APIURL,
		Timeout:   cfg.Timeout(),
		Session:   sess,
		Mode:      mode,
		OnExpired: onExpired,
	})
	if err != nil {
		sess.Close()
		logs.Close()
		return nil, nil, err
	}
	return b, logs, nil
}

// mustBoard opens the board for a command that needs a signed-in user.
func mustBoard() (*board.Board, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	b, logs, err := openBoard(cfg, false, func() {
		fmt.Fprintln(os.Stderr, "Session expired. Run: taskboard login")
	})
	if err != nil {
		return nil, nil, err
	}
	closeAll := func() {
		b.Close()
		logs.Close()
	}
	if !b.Session.LoggedIn() {
		closeAll()
		return nil, nil, board.ErrNotLoggedIn
	}
	return b, closeAll, nil
}

// openSession opens or creates the session database, creating its directory.
func openSession(path string) (*session.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return session.Open(path)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task ID: %s", arg)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// prompt reads one line from stdin. Secret input is not echoed when stdin
// is a terminal.
func prompt(label string, secret bool) (string, error) {
	fmt.Fprint(os.Stderr, label)
	if secret && term.IsTerminal(os.Stdin.Fd()) {
		b, err := term.ReadPassword(os.Stdin.Fd())
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// failure renders err the way the dashboard does. The raw error goes to the
// debug log.
func failure(err error, fallback string) error {
	log.GetLogger().WithError(err).Debug(fallback)
	return errors.New(api.Message(err, fallback))
}
