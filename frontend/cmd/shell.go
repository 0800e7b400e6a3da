// Package cmd implements the interactive bienestar shell.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	ishell "github.com/abiosoft/ishell"
	"github.com/common-nighthawk/go-figure"
	"github.com/jghoshh/bienestar/frontend/client"
	"github.com/jghoshh/bienestar/lib/utils"
)

const requestTimeout = 15 * time.Second

// The Command struct defines a shell command: its Name, a short Desc and
// the Func run when it is invoked.
type Command struct {
	Name string
	Desc string
	Func func(c *ishell.Context)
}

// Shell holds the interactive shell and the commands it switches between
// as the user signs in and out.
type Shell struct {
	shell    *ishell.Shell
	client   *client.Client
	loggedIn bool

	guestCommands  []Command
	userCommands   []Command
	commonCommands []Command
}

// New builds the shell around an API client.
func New(c *client.Client) *Shell {
	s := &Shell{shell: ishell.New(), client: c}
	s.guestCommands = s.authGuestCommands()
	s.userCommands = append(s.authUserCommands(), s.wellnessCommands()...)
	s.commonCommands = []Command{
		{
			Name: "exit",
			Desc: "Exit the application",
			Func: func(c *ishell.Context) {
				fmt.Println("Goodbye!")
				os.Exit(0)
			},
		},
		{
			Name: "help",
			Desc: "List available commands",
			Func: s.help,
		},
	}
	return s
}

func (s *Shell) help(c *ishell.Context) {
	c.Println("Available commands:")
	commands := s.guestCommands
	if s.loggedIn {
		commands = s.userCommands
	}
	for _, command := range append(commands, s.commonCommands...) {
		c.Println("  |-- '" + command.Name + "' : " + command.Desc)
	}
	c.Println()
}

// addCommands registers commands on the shell.
func (s *Shell) addCommands(commands []Command) {
	for _, command := range commands {
		s.shell.AddCmd(&ishell.Cmd{
			Name: command.Name,
			Help: command.Desc,
			Func: command.Func,
		})
	}
}

func (s *Shell) removeCommands(commands []Command) {
	for _, command := range commands {
		s.shell.DeleteCmd(command.Name)
	}
}

func (s *Shell) signedIn() {
	s.loggedIn = true
	s.removeCommands(s.guestCommands)
	s.addCommands(s.userCommands)
}

func (s *Shell) signedOut() {
	s.loggedIn = false
	s.removeCommands(s.userCommands)
	s.addCommands(s.guestCommands)
}

// fail prints err. An unauthorized answer means the session is gone, so the
// shell falls back to the guest commands.
func (s *Shell) fail(err error) {
	var apiErr *client.APIError
	if errors.Is(err, client.ErrNotSignedIn) || (errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && s.loggedIn) {
		utils.PrintError("Session expired, please sign in again by typing 'signin' in the terminal.")
		_ = s.client.SignOut(context.Background())
		s.signedOut()
		return
	}
	utils.PrintError(err.Error())
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// ask prompts until check accepts the answer.
func ask(c *ishell.Context, prompt string, check func(string) error) string {
	for {
		c.Print(prompt)
		answer := c.ReadLine()
		if check == nil {
			return answer
		}
		if err := check(answer); err != nil {
			c.Println(err.Error())
			continue
		}
		return answer
	}
}

func confirm(c *ishell.Context, prompt string) bool {
	for {
		c.Print(prompt + " (yes/no): ")
		switch c.ReadLine() {
		case "yes", "y":
			return true
		case "no", "n":
			return false
		}
		c.Println("Invalid response. Please type 'yes' or 'no'.")
	}
}

// Execute prints the banner and runs the shell until the user exits.
func (s *Shell) Execute() {
	s.shell.Println()
	figure.NewFigure("Bienestar", "basic", true).Print()
	s.shell.Println("Welcome to Bienestar -- your daily wellness tracker. Type 'help' to see a list of commands.")

	s.addCommands(s.commonCommands)
	if ok, err := s.client.SignedIn(); err == nil && ok {
		s.loggedIn = true
		s.addCommands(s.userCommands)
	} else {
		s.addCommands(s.guestCommands)
	}
	s.shell.Run()
}
