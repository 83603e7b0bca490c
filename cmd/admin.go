package cmd

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"termfi/core"
	"termfi/pkg/id"
	"termfi/pkg/wire"
)

// adminCmd appends admin actions straight to the action log; the ledger
// worker picks them up like any other entry and enforces the policy
// roles on the operator id.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "submit admin actions to the ledger",
}

var adminOperator string

func appendAdminAction(cmd *cobra.Command, assetID string, typ core.ActionType, args ...interface{}) {
	memo, err := wire.Encode(append([]interface{}{int8(typ)}, args...)...)
	if err != nil {
		cmd.PrintErrln("encode memo:", err)
		return
	}

	database := provideDatabase()
	defer database.Close()

	propertyStore := providePropertyStore(database)
	system := provideSystem(propertyStore)

	action := &core.Action{
		TraceID:   id.GenTraceID(),
		UserID:    adminOperator,
		AssetID:   assetID,
		Amount:    decimal.Zero,
		Memo:      memo,
		CreatedAt: system.Now(),
	}

	if err := provideActionStore(database).Append(cmd.Context(), action); err != nil {
		cmd.PrintErrln("append action:", err)
		return
	}

	cmd.Println("action submitted:", action.TraceID)
}

var addMarketCmd = &cobra.Command{
	Use:   "add-market <asset-id> <symbol> <decimals>",
	Short: "list a new market",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		appendAdminAction(cmd, args[0], core.ActionTypeAddMarket,
			args[0], args[1], cast.ToInt64(args[2]))
	},
}

var updateMarketCmd = &cobra.Command{
	Use:   "update-market <asset-id> <curve-a> <curve-b> <u-max> <u-full-rate> <treasury-fee> <reserve-factor> <backup-fee> <penalty-rate> <smooth-factor> <max-future-pools>",
	Short: "update market parameters",
	Args:  cobra.ExactArgs(11),
	Run: func(cmd *cobra.Command, args []string) {
		values := []interface{}{args[0]}
		for _, arg := range args[1:10] {
			d, err := decimal.NewFromString(arg)
			if err != nil {
				cmd.PrintErrln("bad decimal:", arg)
				return
			}
			values = append(values, d)
		}
		values = append(values, cast.ToInt64(args[10]))

		appendAdminAction(cmd, args[0], core.ActionTypeUpdateMarket, values...)
	},
}

var setAdjustFactorCmd = &cobra.Command{
	Use:   "set-adjust-factor <asset-id> <factor>",
	Short: "set the market's collateral haircut",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		factor, err := decimal.NewFromString(args[1])
		if err != nil {
			cmd.PrintErrln("bad decimal:", args[1])
			return
		}

		appendAdminAction(cmd, args[0], core.ActionTypeSetAdjustFactor, args[0], factor)
	},
}

var setIncentiveCmd = &cobra.Command{
	Use:   "set-incentive <liquidator> <lenders>",
	Short: "set the global liquidation incentive pair",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		liquidator, err := decimal.NewFromString(args[0])
		if err != nil {
			cmd.PrintErrln("bad decimal:", args[0])
			return
		}
		lenders, err := decimal.NewFromString(args[1])
		if err != nil {
			cmd.PrintErrln("bad decimal:", args[1])
			return
		}

		appendAdminAction(cmd, "", core.ActionTypeSetLiquidationIncentive, liquidator, lenders)
	},
}

var pauseMarketCmd = &cobra.Command{
	Use:   "pause <asset-id>",
	Short: "pause a market",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appendAdminAction(cmd, args[0], core.ActionTypePauseMarket, args[0])
	},
}

var unpauseMarketCmd = &cobra.Command{
	Use:   "unpause <asset-id>",
	Short: "unpause a market",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appendAdminAction(cmd, args[0], core.ActionTypeUnpauseMarket, args[0])
	},
}

var collectTreasuryCmd = &cobra.Command{
	Use:   "collect-treasury <asset-id>",
	Short: "move the market's treasury balance to the operator",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appendAdminAction(cmd, args[0], core.ActionTypeCollectTreasury, args[0])
	},
}

var addOracleSignerCmd = &cobra.Command{
	Use:   "add-oracle-signer <user-id> <public-key>",
	Short: "register an oracle signer public key",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		appendAdminAction(cmd, "", core.ActionTypeAddOracleSigner, args[0], args[1])
	},
}

func init() {
	adminCmd.PersistentFlags().StringVar(&adminOperator, "operator", "", "operator user id holding the required role")
	adminCmd.MarkPersistentFlagRequired("operator")

	adminCmd.AddCommand(
		addMarketCmd,
		updateMarketCmd,
		setAdjustFactorCmd,
		setIncentiveCmd,
		pauseMarketCmd,
		unpauseMarketCmd,
		collectTreasuryCmd,
		addOracleSignerCmd,
	)

	rootCmd.AddCommand(adminCmd)
}
