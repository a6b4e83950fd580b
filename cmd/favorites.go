package cmd

import (
	"context"
	"fmt"
	"io/ioutil"
	"strconv"

	"github.com/Daskott/favdial/colors"
	"github.com/Daskott/favdial/favorites"
	"github.com/Daskott/favdial/models"
	"github.com/Daskott/favdial/resolver"
	"github.com/spf13/cobra"
)

func createListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists favorites in dial order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				collection, err := svc.manager.List()
				if err != nil {
					return err
				}

				if len(collection) == 0 {
					cmd.Println("No favorites yet. Try 'favdial add --contact <id> --phone <number>'")
					return nil
				}

				for index, favorite := range collection {
					cmd.Printf("%v. %s %s\n", index, colors.Cyan(favorite.ID), describeFavorite(favorite))
				}
				return nil
			})
		},
	}
}

func createAddCmd() *cobra.Command {
	input := favorites.NewFavorite{}
	var method, app string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Adds a contact to the favorites",
		Long: `Adds a contact to the end of the favorites. The same contact and number can be
added more than once, e.g. once for calls and once for messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Method = models.CommunicationMethod(method)
			input.App = models.CommunicationApp(app)

			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				id, err := svc.manager.Add(input)
				if err != nil {
					return err
				}

				cmd.Printf("Added favorite %s\n", colors.Cyan(id))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&input.ContactRef, "contact", "c", "", "identifier of the contact in the directory")
	cmd.Flags().StringVarP(&input.PhoneNumber, "phone", "p", "", "phone number to dial")
	cmd.Flags().StringVarP(&input.EmailAddress, "email", "e", "", "email address, for apps that accept one")
	cmd.Flags().StringVarP(&input.DisplayName, "name", "n", "", "name shown for the favorite")
	cmd.Flags().StringVar(&input.GivenName, "given-name", "", "contact's given name")
	cmd.Flags().StringVar(&input.FamilyName, "family-name", "", "contact's family name")
	cmd.Flags().StringVarP(&method, "method", "m", "", "voiceCall, videoCall, or textMessage (default voiceCall)")
	cmd.Flags().StringVarP(&app, "app", "a", "", "app used to reach the contact (default phone)")

	cmd.MarkFlagRequired("contact")

	return cmd
}

func createRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Removes a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				if err := svc.manager.Remove(args[0]); err != nil {
					return err
				}

				cmd.Printf("Removed favorite %s\n", colors.Cyan(args[0]))
				return nil
			})
		},
	}
}

func createMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <index>",
		Short: "Moves a favorite to a new position in the dial order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("inavlid argument \"%v\", index must be a number", args[1])
			}

			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				if err := svc.manager.Move(args[0], index); err != nil {
					return err
				}

				cmd.Printf("Moved favorite %s to position %v\n", colors.Cyan(args[0]), index)
				return nil
			})
		},
	}
}

func createRouteCmd() *cobra.Command {
	var method, app string

	cmd := &cobra.Command{
		Use:   "route <id>",
		Short: "Changes how a favorite is contacted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			routing := favorites.Routing{
				Method: models.CommunicationMethod(method),
				App:    models.CommunicationApp(app),
			}

			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				if err := svc.manager.UpdateRouting(args[0], routing); err != nil {
					return err
				}

				target, err := svc.manager.Resolve(args[0])
				if err != nil {
					cmd.Printf("%s routing saved, but it can't be dialled yet: %v\n", warningLabel, err)
					return nil
				}

				cmd.Printf("Favorite %s now dials %s\n", colors.Cyan(args[0]), target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "", "voiceCall, videoCall, or textMessage")
	cmd.Flags().StringVarP(&app, "app", "a", "", "app used to reach the contact")

	cmd.MarkFlagRequired("method")
	cmd.MarkFlagRequired("app")

	return cmd
}

func createRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Changes the name shown for a favorite",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				if err := svc.manager.Rename(args[0], args[1]); err != nil {
					return err
				}

				cmd.Printf("Renamed favorite %s to %q\n", colors.Cyan(args[0]), args[1])
				return nil
			})
		},
	}
}

func createAvatarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Sets or clears the custom avatar of a favorite",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <id> <image-file>",
		Short: "Uses an image file as the favorite's avatar",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := ioutil.ReadFile(args[1])
			if err != nil {
				return err
			}

			if len(data) == 0 {
				return fmt.Errorf("inavlid argument \"%v\", image file is empty", args[1])
			}

			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				if err := svc.manager.UpdateAvatar(ctx, args[0], data); err != nil {
					return err
				}

				cmd.Printf("Updated avatar of favorite %s\n", colors.Cyan(args[0]))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <id>",
		Short: "Goes back to showing the contact's initials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				if err := svc.manager.UpdateAvatar(ctx, args[0], nil); err != nil {
					return err
				}

				cmd.Printf("Cleared avatar of favorite %s\n", colors.Cyan(args[0]))
				return nil
			})
		},
	})

	return cmd
}

func createResolveCmd() *cobra.Command {
	var method, app, phone, email string

	cmd := &cobra.Command{
		Use:   "resolve [id]",
		Short: "Prints the URL a favorite dials",
		Long: `Prints the URL a favorite dials. Without an id, the URL is built from the
--method, --app, --phone and --email flags instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				target, err := resolver.Resolve(models.CommunicationMethod(method), models.CommunicationApp(app), phone, email)
				if err != nil {
					return err
				}

				cmd.Println(target)
				return nil
			}

			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				target, err := svc.manager.Resolve(args[0])
				if err != nil {
					return err
				}

				cmd.Println(target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", string(models.DEFAULT_METHOD), "voiceCall, videoCall, or textMessage")
	cmd.Flags().StringVarP(&app, "app", "a", string(models.DEFAULT_APP), "app used to reach the contact")
	cmd.Flags().StringVarP(&phone, "phone", "p", "", "phone number to dial")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address, for apps that accept one")

	return cmd
}

func createFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <id>",
		Short: "Looks a favorite up in the contact directory",
		Long: `Looks a favorite up in the contact directory. Names that were never captured
are filled in and saved; names already captured are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFavorites(cmd, func(ctx context.Context, svc *services) error {
				task := svc.manager.LazyFetch(args[0])

				select {
				case <-task.Done():
				case <-ctx.Done():
					task.Cancel()
					return ctx.Err()
				}

				result, err := task.Wait()
				if err != nil {
					return err
				}

				snapshot := result.(*favorites.Snapshot)
				if snapshot.Contact == nil {
					cmd.Printf("%s contact %q could not be looked up, showing cached names\n",
						warningLabel, snapshot.Record.ContactRef)
				}

				cmd.Printf("%s %s\n", colors.Cyan(snapshot.Record.ID), describeFavorite(snapshot.Record))
				if snapshot.Contact != nil && snapshot.Contact.DisplayName != "" {
					cmd.Printf("  directory name: %s\n", snapshot.Contact.DisplayName)
				}
				return nil
			})
		},
	}
}

func describeFavorite(favorite models.FavoriteRecord) string {
	avatar := colors.Yellow("(" + favorite.Initials() + ")")
	if favorite.HasAvatar() {
		avatar = colors.Green("(avatar)")
	}

	return fmt.Sprintf("%s %s - %s via %s", favorite.DisplayName, avatar, favorite.Method, favorite.App)
}
