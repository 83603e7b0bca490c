package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fox-one/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"termfi/handler/hc"
	"termfi/handler/rest"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "run termfi api server",
	Run: func(cmd *cobra.Command, args []string) {
		database := provideDatabase()
		defer database.Close()

		propertyStore := providePropertyStore(database)
		system := provideSystem(propertyStore)

		marketStore := provideCachedMarketStore(database)
		supplyStore := provideSupplyStore(database)
		borrowStore := provideBorrowStore(database)
		poolStore := providePoolStore(database)
		actionStore := provideActionStore(database)
		priceStore := providePriceStore(database)
		signerStore := provideOracleSignerStore(database)
		transactionStore := provideTransactionStore(database)

		marketService := provideMarketService(poolStore)
		priceService := providePriceService(system, priceStore, signerStore)
		auditorService := provideAuditorService(system, marketStore, supplyStore, borrowStore, poolStore, priceService)

		mux := chi.NewMux()
		mux.Use(middleware.Recoverer)
		mux.Use(middleware.StripSlashes)
		mux.Use(cors.AllowAll().Handler)
		mux.Use(logger.WithRequestID)
		mux.Use(middleware.Logger)
		mux.Use(middleware.NewCompressor(5).Handler)

		mux.Mount("/hc", hc.Handle(rootCmd.Version))
		mux.Mount("/api", rest.Handle(
			system,
			marketStore,
			supplyStore,
			borrowStore,
			poolStore,
			transactionStore,
			actionStore,
			marketService,
			auditorService,
		))

		port, _ := cmd.Flags().GetInt("port")
		addr := fmt.Sprintf(":%d", port)

		server := &http.Server{
			Addr:    addr,
			Handler: mux,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				logrus.WithError(err).Error("graceful shutdown server failed")
			}
		}()

		logrus.Infoln("serve at", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server aborted")
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntP("port", "p", 9000, "server port")
}
