package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/trezcool/stage/client"
	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/curriculum"
)

var (
	// mockables
	readPasswordFunc = term.ReadPassword
	loginFunc        = client.Login
	newBackendFunc   = func(baseURL string, session client.Session, httpClient *http.Client) client.Backend {
		return client.New(baseURL, session, httpClient)
	}

	errHelp = errors.New("help provided")
)

// stateLabels are the icons shown in front of each curriculum.
var stateLabels = map[curriculum.DisplayState]string{
	curriculum.StateIsPrincipal: "[*]",
	curriculum.StateSelectable:  "[ ]",
	curriculum.StatePending:     "[~]",
	curriculum.StateRejected:    "[x]",
}

type portal struct {
	apiURL     string
	httpClient *http.Client
	logger     core.Logger
	out        io.Writer
}

func (p *portal) output() io.Writer {
	if p.out == nil {
		return os.Stdout
	}
	return p.out
}

func (p *portal) printUsage() {
	w := p.output()
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  list -username USERNAME - list your curricula, best first")
	_, _ = fmt.Fprintln(w, "  principal -username USERNAME -id CURRICULUM_ID - make a valid curriculum your principal one")
	_, _ = fmt.Fprintln(w, "  download -username USERNAME -id CURRICULUM_ID [-o FILE] - save a curriculum document")
}

func (p *portal) readPassword(prompt string) (string, error) {
	_, _ = fmt.Fprint(p.output(), prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(p.output())
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// openBoard logs the user in and loads their curricula.
func (p *portal) openBoard(ctx context.Context, uname string) (*client.Board, error) {
	pwd, err := p.readPassword("Password:")
	if err != nil {
		return nil, err
	}
	session, err := loginFunc(ctx, p.apiURL, uname, pwd, p.httpClient)
	if err != nil {
		return nil, err
	}
	board := client.NewBoard(newBackendFunc(p.apiURL, session, p.httpClient), session.UserID, p.logger)
	if err = board.Load(ctx); err != nil {
		return nil, err
	}
	return board, nil
}

func (p *portal) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		p.printUsage()
		return errHelp
	}

	cmd := flag.NewFlagSet(args[1], flag.ContinueOnError)
	cmd.SetOutput(p.output())
	uname := cmd.String("username", "", "Your username or email. The password will be prompted next.")
	var cvID, dest *string
	switch args[1] {
	case "list":
	case "principal":
		cvID = cmd.String("id", "", "The curriculum ID.")
	case "download":
		cvID = cmd.String("id", "", "The curriculum ID.")
		dest = cmd.String("o", "", "The output file (default: the curriculum name).")
	default:
		p.printUsage()
		return errHelp
	}

	if err := cmd.Parse(args[2:]); err != nil {
		return errHelp
	}
	if *uname == "" || (cvID != nil && *cvID == "") {
		cmd.Usage()
		return errHelp
	}

	board, err := p.openBoard(ctx, *uname)
	if err != nil {
		return err
	}
	switch args[1] {
	case "principal":
		return p.selectPrincipal(ctx, board, *cvID)
	case "download":
		return p.download(ctx, board, *cvID, *dest)
	default:
		return p.list(board)
	}
}

func (p *portal) list(board *client.Board) error {
	if board.Empty() {
		_, _ = fmt.Fprintln(p.output(), "No curriculum yet.")
		return nil
	}
	w := tabwriter.NewWriter(p.output(), 0, 4, 2, ' ', 0)
	for _, row := range board.Rows() {
		cv := row.Curriculum
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			stateLabels[row.State], cv.ID, cv.Name, cv.Validity, cv.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func (p *portal) selectPrincipal(ctx context.Context, board *client.Board, id string) error {
	cv, ok := board.Find(id)
	if !ok {
		return curriculum.ErrNotInList
	}
	if err := board.SelectAsPrincipal(ctx, cv); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(p.output(), "%q is now your principal curriculum.\n", cv.Name)
	return p.list(board)
}

func (p *portal) download(ctx context.Context, board *client.Board, id, dest string) error {
	cv, ok := board.Find(id)
	if !ok {
		return curriculum.ErrNotInList
	}
	data, err := board.Download(ctx, cv)
	if err != nil {
		return err
	}
	if dest == "" {
		dest = filepath.Base(cv.Name)
	}
	if err = os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(p.output(), "saved %q (%d bytes)\n", dest, len(data))
	return nil
}
