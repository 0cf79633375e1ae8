package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ReconcileRoomsCmd recomputes every room's is_allocated flag from the ledger
func ReconcileRoomsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-rooms",
		Short: "Recompute every room's allocation flag from its active allocations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.App.Service.Allocation.ReconcileRooms(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("✓ checked %d room(s), fixed %d\n", result.Checked, result.Fixed)
			return nil
		},
	}
}
