package cmd

import (
	"encoding/base64"

	"github.com/pandodao/blst"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "generate a blst key pair for oracle price signing",
	Run: func(cmd *cobra.Command, args []string) {
		private := blst.GenerateKey()
		public := private.PublicKey()

		cmd.Println("blst private key:", base64.StdEncoding.EncodeToString(private.Bytes()))
		cmd.Println("blst public key:", base64.StdEncoding.EncodeToString(public.Bytes()))
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}
