package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"marketing-export/domain/credential"
)

// Consent runs the interactive part of an authorization-code flow
type Consent interface {
	// RedirectURL is the callback address the authorization server returns to
	RedirectURL() string
	// Authorize presents authURL to the user and waits for the code whose
	// callback carries the given state
	Authorize(ctx context.Context, authURL, state string) (string, error)
}

// LocalServerConsent receives the callback on a localhost HTTP server and
// opens the consent page in the default browser
type LocalServerConsent struct {
	Port        int
	Output      io.Writer
	OpenBrowser func(url string)
}

// NewLocalServerConsent creates a consent flow listening on port
func NewLocalServerConsent(port int, output io.Writer) *LocalServerConsent {
	if port == 0 {
		port = DefaultCallbackPort
	}
	if output == nil {
		output = io.Discard
	}
	return &LocalServerConsent{Port: port, Output: output, OpenBrowser: openBrowser}
}

// RedirectURL implements Consent
func (c *LocalServerConsent) RedirectURL() string {
	return fmt.Sprintf("http://localhost:%d/callback", c.Port)
}

// Authorize implements Consent
func (c *LocalServerConsent) Authorize(ctx context.Context, authURL, state string) (string, error) {
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "Error: state mismatch", http.StatusBadRequest)
			sendErr(errChan, credential.ErrStateMismatch)
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "Error: "+e, http.StatusBadRequest)
			sendErr(errChan, fmt.Errorf("consent denied: %s", e))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Error: No authorization code received", http.StatusBadRequest)
			sendErr(errChan, errors.New("no code in callback"))
			return
		}
		select {
		case codeChan <- code:
		default:
		}
		fmt.Fprintf(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window and return to the terminal.</p></body></html>")
	})

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", c.Port))
	if err != nil {
		return "", fmt.Errorf("starting callback server: %w", err)
	}

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sendErr(errChan, err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Fprintln(c.Output)
	fmt.Fprintln(c.Output, "Opening browser for Google authentication...")
	fmt.Fprintln(c.Output, "If the browser doesn't open, please visit this URL:")
	fmt.Fprintln(c.Output)
	fmt.Fprintln(c.Output, authURL)
	fmt.Fprintln(c.Output)

	if c.OpenBrowser != nil {
		c.OpenBrowser(authURL)
	}

	select {
	case code := <-codeChan:
		return code, nil
	case err := <-errChan:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// openBrowser opens a URL in the default browser
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		if _, err := exec.LookPath("xdg-open"); err == nil {
			cmd = exec.Command("xdg-open", url)
		} else if _, err := exec.LookPath("wslview"); err == nil {
			// WSL
			cmd = exec.Command("wslview", url)
		} else {
			cmd = exec.Command("cmd.exe", "/c", "start", url)
		}
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	}

	if cmd != nil {
		_ = cmd.Start()
	}
}
