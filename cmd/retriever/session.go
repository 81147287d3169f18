package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"retriever/internal/config"
	rerrors "retriever/internal/errors"
	"retriever/internal/logging"
	"retriever/internal/paths"
	"retriever/internal/profile"
	"retriever/internal/workspace"
)

// session is the state one CLI invocation works on: the workspace restored
// from the working profile, and the store it is written back to.
type session struct {
	root   string
	cfg    *config.Config
	logger *logging.Logger
	ws     *workspace.Workspace
	store  *profile.Store
	name   string
}

// activeSession is the session open in this invocation, closed by exit.
var activeSession *session

// osExit is replaced in tests.
var osExit = os.Exit

// openSession loads config, catalogs and the working profile.
func openSession() (*session, error) {
	root := mustGetRepoRoot()

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	ws, err := workspace.Open(root, cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := profile.OpenStore(paths.Resolve(root, cfg.Store.Path), cfg.Store.Compress, logger)
	if err != nil {
		return nil, err
	}

	s := &session{
		root:   root,
		cfg:    cfg,
		logger: logger,
		ws:     ws,
		store:  store,
		name:   profileFlag,
	}
	activeSession = s

	if _, err := ws.Restore(store, s.name); err != nil {
		if !rerrors.HasCode(err, rerrors.ProfileNotFound) {
			s.close()
			return nil, err
		}
		logger.Debug("No stored selection, starting empty", map[string]interface{}{
			"profile": s.name,
		})
	}
	return s, nil
}

// mustOpenSession returns a session or exits on error.
func mustOpenSession() *session {
	s, err := openSession()
	if err != nil {
		exitWithError("Error opening workspace", err)
	}
	return s
}

// commit writes the workspace back to the working profile.
func (s *session) commit() {
	if _, err := s.ws.Snapshot(s.store, s.name); err != nil {
		exitWithError("Error saving selection", err)
	}
}

// close releases the store. It is safe to call more than once.
func (s *session) close() {
	if activeSession == s {
		activeSession = nil
	}
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("Failed to close profile store", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.store = nil
}

// exit closes the active session, since deferred closes do not run on
// os.Exit, then exits with code.
func exit(code int) {
	if activeSession != nil {
		activeSession.close()
	}
	osExit(code)
}

// getRepoRoot returns the repository root directory.
func getRepoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return paths.FindRepoRoot(wd)
}

// mustGetRepoRoot returns the repository root or exits on error.
func mustGetRepoRoot() string {
	repoRoot, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
	return repoRoot
}

// newLogger creates a logger from the logging section of cfg. The
// --log-level flag wins over the config file.
func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	format := logging.HumanFormat
	if cfg.Logging.Format == "json" {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(level),
	})
}

// exitWithError prints err and any suggested fixes, then exits.
func exitWithError(prefix string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", prefix, err)

	var re *rerrors.RetrieverError
	if stderrors.As(err, &re) && len(re.SuggestedFixes) > 0 {
		fmt.Fprintln(os.Stderr, "\nSuggested fixes:")
		for _, fix := range re.SuggestedFixes {
			switch fix.Type {
			case rerrors.RunCommand:
				fmt.Fprintf(os.Stderr, "  run:  %s  (%s)\n", fix.Command, fix.Description)
			case rerrors.EditFile:
				fmt.Fprintf(os.Stderr, "  edit: %s  (%s)\n", fix.Path, fix.Description)
			}
		}
	}
	exit(1)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitWithError("Error formatting output", err)
	}
	fmt.Println(string(data))
}
