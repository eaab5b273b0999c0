package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maynagashev/bookswap/models"
)

func (a *app) newLoginCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Войти и сохранить сессию",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			email, err := a.valueOrPrompt(email, "Email")
			if err != nil {
				return err
			}
			password, err := a.promptPassword("Пароль")
			if err != nil {
				return err
			}
			if email == "" || password == "" {
				return errors.New("email и пароль обязательны")
			}

			resp, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("ошибка входа: %w", err)
			}
			if err = a.session.SetAuthData(resp.Token, resp.UserID, resp.Name); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Вы вошли как %s (id %d)\n", resp.Name, resp.UserID)
			if a.readOnly || a.session.Degraded() {
				fmt.Fprintln(a.out, "Внимание: сессия не сохранена и будет потеряна после выхода")
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "Email пользователя")
	return cmd
}

func (a *app) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Выйти и удалить сохраненную сессию",
		Args:  cobra.NoArgs,
		RunE: a.run(func(_ *cobra.Command, _ []string) error {
			a.session.ClearAuthData()
			fmt.Fprintln(a.out, "Вы вышли из аккаунта")
			return nil
		}),
	}
}

func (a *app) newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Показать текущего пользователя",
		Args:  cobra.NoArgs,
		RunE: a.run(func(_ *cobra.Command, _ []string) error {
			id, err := a.requireIdentity()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (id %d)\n", id.Name, id.UserID)
			return nil
		}),
	}
}

func (a *app) newRegisterCommand() *cobra.Command {
	var req models.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Зарегистрировать нового пользователя",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			var err error
			if req.Name, err = a.valueOrPrompt(req.Name, "Имя"); err != nil {
				return err
			}
			if req.Email, err = a.valueOrPrompt(req.Email, "Email"); err != nil {
				return err
			}
			if req.Password, err = a.promptPassword("Пароль"); err != nil {
				return err
			}
			if req.Name == "" || req.Email == "" || req.Password == "" {
				return errors.New("имя, email и пароль обязательны")
			}

			message, err := a.client.Register(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("ошибка регистрации: %w", err)
			}
			fmt.Fprintln(a.out, message)
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Имя пользователя")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email пользователя")
	cmd.Flags().StringVar(&req.FavouriteGenre, "favourite-genre", "", "Любимый жанр")
	cmd.Flags().StringVar(&req.ReadingPreference, "reading-preference", "", "Предпочтения в чтении")
	return cmd
}

func (a *app) newPasswordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Сброс и смена пароля",
	}

	var email string
	requestCmd := &cobra.Command{
		Use:   "request-reset",
		Short: "Отправить ссылку для сброса пароля на почту",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			email, err := a.valueOrPrompt(email, "Email")
			if err != nil {
				return err
			}
			message, err := a.client.RequestPasswordReset(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("ошибка запроса сброса пароля: %w", err)
			}
			fmt.Fprintln(a.out, message)
			return nil
		}),
	}
	requestCmd.Flags().StringVar(&email, "email", "", "Email пользователя")

	var resetToken string
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Задать новый пароль по токену из письма",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			token, err := a.valueOrPrompt(resetToken, "Токен сброса")
			if err != nil {
				return err
			}
			password, err := a.promptPassword("Новый пароль")
			if err != nil {
				return err
			}
			message, err := a.client.ResetPassword(cmd.Context(), token, password)
			if err != nil {
				return fmt.Errorf("ошибка сброса пароля: %w", err)
			}
			fmt.Fprintln(a.out, message)
			return nil
		}),
	}
	resetCmd.Flags().StringVar(&resetToken, "token", "", "Токен сброса пароля")

	cmd.AddCommand(requestCmd, resetCmd)
	return cmd
}

func (a *app) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Показать версию и дату сборки",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipSetup: "true"},
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(a.out, "BookSwap Client")
			fmt.Fprintf(a.out, "Version: %s\n", a.build.Version)
			fmt.Fprintf(a.out, "Build Date: %s\n", a.build.BuildDate)
			fmt.Fprintf(a.out, "Commit Hash: %s\n", a.build.CommitHash)
		},
	}
}
