package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BradenHooton/vestibule/internal/models"
	"github.com/BradenHooton/vestibule/internal/repositories"
	pkgauth "github.com/BradenHooton/vestibule/pkg/auth"
)

func newUserCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage credential records",
	}
	cmd.AddCommand(newUserAddCommand(a))
	return cmd
}

func newUserAddCommand(a *app) *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a credential record",
		Long: `Create a credential record. The password is read from the first line
of standard input so it never appears in the process list or shell history:

  printf '%s\n' "$PASSWORD" | vestibulectl user add alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])
			if username == "" {
				return errors.New("username must not be blank")
			}

			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := pkgauth.ValidatePassword(password); err != nil {
				return err
			}

			hash, err := pkgauth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := repositories.NewUserRepository(db).Create(cmd.Context(), &models.User{
				Username:     username,
				PasswordHash: hash,
				IsAdmin:      admin,
			})
			if errors.Is(err, models.ErrConflict) {
				return fmt.Errorf("user %q already exists", username)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "Mark the user as an administrator")
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("no password on standard input")
	}
	return password, nil
}
