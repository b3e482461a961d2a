package commands

import (
	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newUserCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserAddCommand(opts))
	return cmd
}

type userAnswers struct {
	Email    string
	FullName string `survey:"name"`
	Password string
	Confirm  string
}

func newUserAddCommand(opts *rootOptions) *cobra.Command {
	var answers userAnswers
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user who can sign in to the API",
		Long:  "Prompts for anything not given as a flag. The password is never echoed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := askUser(&answers); err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.services().Auth.Register(cmd.Context(), answers.Email, answers.FullName, answers.Password, answers.Confirm)
			if err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "Created user %d <%s>\n", user.ID, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&answers.Email, "email", "", "email address")
	cmd.Flags().StringVar(&answers.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&answers.Password, "password", "", "password (prompted when empty)")
	return cmd
}

// askUser prompts for the fields still empty
func askUser(answers *userAnswers) error {
	var qs []*survey.Question
	if answers.Email == "" {
		qs = append(qs, &survey.Question{
			Name:     "email",
			Prompt:   &survey.Input{Message: "Email:"},
			Validate: survey.Required,
		})
	}
	if answers.FullName == "" {
		qs = append(qs, &survey.Question{
			Name:   "name",
			Prompt: &survey.Input{Message: "Full name:"},
		})
	}
	if answers.Password == "" {
		qs = append(qs,
			&survey.Question{
				Name:     "password",
				Prompt:   &survey.Password{Message: "Password:"},
				Validate: survey.ComposeValidators(survey.Required, survey.MinLength(6)),
			},
			&survey.Question{
				Name:   "confirm",
				Prompt: &survey.Password{Message: "Confirm password:"},
			},
		)
	} else {
		answers.Confirm = answers.Password
	}
	if len(qs) == 0 {
		return nil
	}
	return survey.Ask(qs, answers)
}
