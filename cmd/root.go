/*
Copyright © 2021 Edmond Cotterell

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	"github.com/Daskott/favdial/colors"
	"github.com/Daskott/favdial/version"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	isDevEnv bool

	warningLabel = colors.Yellow("Warning:")
)

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd = createRootCmd()
	rootCmd.Version = fmt.Sprintf("v%s", version.Version)

	rootCmd.AddCommand(
		createListCmd(),
		createAddCmd(),
		createRemoveCmd(),
		createMoveCmd(),
		createRouteCmd(),
		createRenameCmd(),
		createAvatarCmd(),
		createResolveCmd(),
		createFetchCmd(),
		createMigrateCmd(),
		createGCCmd(),
		createBackupCmd(),
		createRestoreCmd(),
		createServerCmd(),
	)
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "favdial",
		Short: `favdial keeps the speed-dial favorites of your contacts.

Each favorite remembers how you like to reach someone (a voice call, a video call
or a message) and through which app, along with an optional custom avatar.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.favdial.yaml)")
	cmd.PersistentFlags().BoolVarP(&isDevEnv, "dev", "", false, "run in development mode")

	return cmd
}

func formattedError(format string, a ...interface{}) error {
	return fmt.Errorf(colors.Red(format), a...)
}
