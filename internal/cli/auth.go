package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imkarma/taskboard/internal/api"
)

var (
	authEmail    string
	authPassword string
	authUsername string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account (does not sign in)",
	RunE:  runRegister,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&authEmail, "email", "e", "", "Account email")
		c.Flags().StringVar(&authPassword, "password", "", "Password (prompted when omitted)")
	}
	registerCmd.Flags().StringVarP(&authUsername, "username", "u", "", "Display name")
}

// credentials fills in whatever was not given as a flag.
func credentials() (string, string, error) {
	email, password := authEmail, authPassword
	var err error
	if email == "" {
		if email, err = prompt("Email: ", false); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = prompt("Password: ", true); err != nil {
			return "", "", err
		}
	}
	if email == "" || password == "" {
		return "", "", errors.New("email and password are required")
	}
	return email, password, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, logs, err := openBoard(cfg, false, nil)
	if err != nil {
		return err
	}
	defer logs.Close()
	defer b.Close()

	email, password, err := credentials()
	if err != nil {
		return err
	}

	u, err := b.Login(context.Background(), email, password)
	if errors.Is(err, api.ErrUnauthorized) {
		return errors.New("invalid email or password")
	}
	if err != nil {
		return failure(err, "Login failed")
	}

	fmt.Printf("Signed in as %s <%s>\n", u.Username, u.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, logs, err := openBoard(cfg, false, nil)
	if err != nil {
		return err
	}
	defer logs.Close()
	defer b.Close()

	if !b.Session.LoggedIn() {
		fmt.Println("Not signed in.")
		return nil
	}
	if err := b.Logout(); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, logs, err := openBoard(cfg, false, nil)
	if err != nil {
		return err
	}
	defer logs.Close()
	defer b.Close()

	email, password, err := credentials()
	if err != nil {
		return err
	}
	username := authUsername
	if username == "" {
		if username, err = prompt("Username: ", false); err != nil {
			return err
		}
	}

	u, err := b.Register(context.Background(), api.Registration{
		Email:    email,
		Username: username,
		Password: password,
	})
	if err != nil {
		return failure(err, "Registration failed")
	}

	fmt.Printf("Registered %s <%s>. Run: taskboard login --email %s\n", u.Username, u.Email, u.Email)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	b, done, err := mustBoard()
	if err != nil {
		return err
	}
	defer done()

	u, err := b.Whoami(context.Background())
	if err != nil {
		return failure(err, "Failed to load profile")
	}

	fmt.Printf("%s <%s>\n", u.Username, u.Email)
	fmt.Printf("  ID:    %d\n", u.ID)
	if u.Role != "" {
		fmt.Printf("  Role:  %s\n", u.Role)
	}
	if !u.CreatedAt.IsZero() {
		fmt.Printf("  Since: %s\n", u.CreatedAt.Local().Format("2006-01-02"))
	}
	return nil
}
