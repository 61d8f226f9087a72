package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Log in and pull the server's task list",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := promptCredentials(args)
		if err != nil {
			return err
		}
		if err := orch.Login(email, password); err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", orch.Session().Email)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register [email]",
	Short: "Create an account on the sync server",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := promptCredentials(args)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		if err := orch.Register(email, password, name); err != nil {
			return err
		}
		fmt.Printf("registered %s\n", orch.Session().Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of the sync server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := orch.Logout(); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session := orch.Session()
		if session == nil {
			fmt.Println("not logged in")
			return nil
		}
		fmt.Printf("%s (%s)\n", session.Email, session.Name)
		return nil
	},
}

func promptCredentials(args []string) (email, password string, err error) {
	reader := bufio.NewReader(os.Stdin)
	if len(args) > 0 {
		email = args[0]
	} else {
		fmt.Print("email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		email = strings.TrimSpace(line)
	}

	fmt.Print("password: ")
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", "", err
		}
		password = string(raw)
	} else {
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		password = strings.TrimSpace(line)
	}
	return email, password, nil
}

func init() {
	registerCmd.Flags().String("name", "", "display name")
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}
