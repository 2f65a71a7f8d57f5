package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/aitrainer/trainer-backend/internal/model"
	"github.com/aitrainer/trainer-backend/internal/repository"
	"github.com/aitrainer/trainer-backend/internal/validator"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		validator.Setup()
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("=== Create New User ===")
		req := model.SignUpRequest{
			Email:    prompt(reader, "Enter Email: "),
			Nickname: prompt(reader, "Enter Nickname (optional): "),
		}
		password, err := promptPassword("Enter Password: ")
		if err != nil {
			return err
		}
		req.Password = password

		if fields := validator.Struct(&req); fields != nil {
			return fieldsError(fields)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), cfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		u := &model.User{Email: strings.ToLower(req.Email), PasswordHash: string(hash)}
		if err := repository.NewUserRepository(pool).Create(ctx, u, model.DisplayName(req.Nickname, u.Email)); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		fmt.Printf("\nSuccess! User %s created with ID: %s\n", u.Email, u.ID)
		return nil
	},
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password <email>",
	Short: "Set a new password for an existing user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword("Enter New Password: ")
		if err != nil {
			return err
		}
		if len(password) < 6 {
			return errors.New("password must be at least 6 characters")
		}

		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		users := repository.NewUserRepository(pool)
		u, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(args[0])))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("no user with email %s", args[0])
			}
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		if err := users.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
			return fmt.Errorf("update password: %w", err)
		}

		log.Info().Str("user_id", u.ID).Msg("Password reset from CLI")
		fmt.Printf("Password updated for %s\n", u.Email)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd, userResetPasswordCmd)
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}

func promptPassword(label string) (string, error) {
	fmt.Print(label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func fieldsError(fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, len(keys))
	for i, k := range keys {
		msgs[i] = fields[k]
	}
	return errors.New(strings.Join(msgs, "; "))
}
