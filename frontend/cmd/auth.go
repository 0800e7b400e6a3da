package cmd

import (
	"errors"

	ishell "github.com/abiosoft/ishell"
	"github.com/jghoshh/bienestar/lib/utils"
)

var (
	errBadEmail    = errors.New("Email is not valid.")
	errBadPassword = errors.New("Password must be at least 8 characters and contain both letters and numbers.")
)

func checkEmail(v string) error {
	if !utils.ValidateEmail(utils.NormalizeEmail(v)) {
		return errBadEmail
	}
	return nil
}

func checkName(v string) error {
	if len([]rune(v)) < 2 {
		return errors.New("Name must be at least 2 characters.")
	}
	return nil
}

// readNewPassword asks for a password twice until both entries match and
// the password is strong enough.
func readNewPassword(c *ishell.Context, prompt string) string {
	for {
		c.Print(prompt)
		password := c.ReadPassword()
		if !utils.ValidatePassword(password) {
			c.Println()
			c.Println(errBadPassword.Error())
			c.Println()
			continue
		}
		c.Print("Confirm Password: ")
		if c.ReadPassword() == password {
			return password
		}
		c.Println()
		c.Println("Passwords do not match. Please try again.")
		c.Println()
	}
}

func (s *Shell) authGuestCommands() []Command {
	return []Command{
		{
			Name: "signin",
			Desc: "Sign in to your account",
			Func: func(c *ishell.Context) {
				email := ask(c, "Enter Email: ", checkEmail)
				var password string
				for password == "" {
					c.Print("Enter Password: ")
					if password = c.ReadPassword(); password == "" {
						c.Println("Password cannot be empty.")
					}
				}

				ctx, cancel := requestContext()
				defer cancel()
				user, err := s.client.SignIn(ctx, email, password)
				if err != nil {
					s.fail(err)
					return
				}
				c.Printf("Welcome back, %s.\n", user.DisplayName)
				s.signedIn()
			},
		},
		{
			Name: "signup",
			Desc: "Sign up for a new account",
			Func: func(c *ishell.Context) {
				email := ask(c, "Enter Email: ", checkEmail)
				password := readNewPassword(c, "Enter Password: ")

				ctx, cancel := requestContext()
				defer cancel()
				user, err := s.client.SignUp(ctx, email, password)
				if err != nil {
					s.fail(err)
					return
				}
				c.Printf("Account created successfully. Welcome, %s.\n", user.DisplayName)
				s.signedIn()
			},
		},
		{
			Name: "forgotpassword",
			Desc: "Reset your account password",
			Func: func(c *ishell.Context) {
				email := ask(c, "Enter Email: ", checkEmail)

				ctx, cancel := requestContext()
				defer cancel()
				if err := s.client.RequestPasswordReset(ctx, email); err != nil {
					s.fail(err)
					return
				}
				c.Println("A reset code has been sent to your email.")

				code := ask(c, "Enter the Reset Code: ", func(v string) error {
					if v == "" {
						return errors.New("Please enter the code.")
					}
					return nil
				})
				password := readNewPassword(c, "Enter New Password: ")

				ctx, cancel = requestContext()
				defer cancel()
				if err := s.client.ResetPassword(ctx, email, code, password); err != nil {
					s.fail(err)
					return
				}
				c.Println("Password has been updated. Please sign in.")
			},
		},
	}
}

func (s *Shell) authUserCommands() []Command {
	return []Command{
		{
			Name: "profile",
			Desc: "Show your account",
			Func: func(c *ishell.Context) {
				ctx, cancel := requestContext()
				defer cancel()
				user, err := s.client.Me(ctx)
				if err != nil {
					s.fail(err)
					return
				}
				c.Printf("Name:   %s\nEmail:  %s\nSince:  %s\n", user.DisplayName, user.Email, user.CreatedAt.Format("2006-01-02"))
				if user.PhotoURL != "" {
					c.Printf("Photo:  %s\n", user.PhotoURL)
				}
			},
		},
		{
			Name: "updatemyacc",
			Desc: "Update your display name or photo",
			Func: func(c *ishell.Context) {
				var name, photo string
				if confirm(c, "Do you want to update your name?") {
					name = ask(c, "Enter New Name: ", checkName)
				}
				if confirm(c, "Do you want to update your photo URL?") {
					photo = ask(c, "Enter Photo URL: ", nil)
				}
				if name == "" && photo == "" {
					return
				}

				ctx, cancel := requestContext()
				defer cancel()
				if _, err := s.client.UpdateProfile(ctx, name, photo); err != nil {
					s.fail(err)
					return
				}
				c.Println("Account updated successfully.")
			},
		},
		{
			Name: "signout",
			Desc: "Sign out from your account",
			Func: func(c *ishell.Context) {
				ctx, cancel := requestContext()
				defer cancel()
				if err := s.client.SignOut(ctx); err != nil {
					utils.PrintError(err.Error())
				}
				c.Println("You are now signed out.")
				s.signedOut()
			},
		},
		{
			Name: "deletemyacc",
			Desc: "Delete your account and all of your data",
			Func: func(c *ishell.Context) {
				if !confirm(c, "Are you sure you want to delete your account?") {
					return
				}
				ctx, cancel := requestContext()
				defer cancel()
				if err := s.client.DeleteAccount(ctx); err != nil {
					s.fail(err)
					return
				}
				c.Println("Account deleted successfully.")
				s.signedOut()
			},
		},
	}
}
