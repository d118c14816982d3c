package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	dbPath  string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "periegete",
	Short: "Periegete - annotation toolkit for the Periegesis of Pausanias",
	Long: `Periegete builds an annotated corpus of Pausanias' Description of
Greece and derives analyses from it.

The pipeline imports the Greek text into a citation-addressed SQLite
corpus, labels each passage along two axes (mythic-era reference,
authorial scepticism) with an LLM, extracts the proper nouns, and
translates the text. From the stored annotations it then computes the
words most predictive of each label and the co-occurrence network of
persons, places and deities.

Every LLM stage is resumable: results are committed per passage, so an
interrupted run picks up exactly where it stopped.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for Periegete.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("periegete v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.periegete/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "database", "", "SQLite corpus path (default: pausanias.sqlite)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.periegete")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match PERIEGETE_*
	viper.SetEnvPrefix("PERIEGETE")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
