package commands

import (
	"fmt"
	"os"

	qrterminal "github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"veilchat/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	var asQR bool
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the identity fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := login(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()

			fp := crypto.Fingerprint(sess.PublicKey())
			fmt.Printf("Fingerprint: %s\n", fp)
			if asQR {
				qrterminal.GenerateWithConfig(fp.String(), qrterminal.Config{
					Level:     qrterminal.M,
					Writer:    os.Stdout,
					BlackChar: qrterminal.BLACK,
					WhiteChar: qrterminal.WHITE,
					QuietZone: 1,
				})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asQR, "qr", false, "also render the fingerprint as a QR code")
	return cmd
}
