package cmd

import (
	"os/signal"
	"syscall"

	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"termfi/worker"
	"termfi/worker/accrual"
	ledgerworker "termfi/worker/ledger"
	oracleworker "termfi/worker/oracle"
	"termfi/worker/payout"
	"termfi/worker/sentinel"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "run termfi workers",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		database := provideDatabase()
		defer database.Close()

		propertyStore := providePropertyStore(database)
		system := provideSystem(propertyStore)

		marketStore := provideMarketStore(database)
		supplyStore := provideSupplyStore(database)
		borrowStore := provideBorrowStore(database)
		poolStore := providePoolStore(database)
		actionStore := provideActionStore(database)
		priceStore := providePriceStore(database)
		signerStore := provideOracleSignerStore(database)
		transactionStore := provideTransactionStore(database)
		transferStore := provideTransferStore(database)

		marketService := provideMarketService(poolStore)
		priceService := providePriceService(system, priceStore, signerStore)
		auditorService := provideAuditorService(system, marketStore, supplyStore, borrowStore, poolStore, priceService)

		workers := []worker.Worker{
			ledgerworker.New(
				system,
				database,
				propertyStore,
				actionStore,
				marketStore,
				supplyStore,
				borrowStore,
				poolStore,
				priceStore,
				signerStore,
				transactionStore,
				transferStore,
				marketService,
				auditorService,
				priceService,
			),
			payout.New(transferStore, cfg.App.PayoutEndpoint),
			sentinel.New(system, supplyStore, auditorService, transactionStore),
		}

		if cfg.PriceOracle.SignKey != "" {
			poller, err := oracleworker.New(system, marketStore, priceStore, actionStore, priceService, cfg.PriceOracle)
			if err != nil {
				log.WithError(err).Fatalln("init price poller")
			}
			workers = append(workers, poller)
		}

		accrualJob := accrual.New(system, database, marketStore, marketService, cfg.App.Location)
		if err := accrualJob.Start(); err != nil {
			log.WithError(err).Fatalln("start accrual job")
		}
		defer accrualJob.Stop()

		var g errgroup.Group
		for _, w := range workers {
			w := w
			g.Go(func() error {
				return w.Run(ctx)
			})
		}

		if err := g.Wait(); err != nil {
			log.WithError(err).Infoln("workers stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
