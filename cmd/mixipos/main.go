package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/config"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/db"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/logger"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/mq"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/dataservice"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/kitchen"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/cart"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/checkout"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/recovery"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/settlement"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/table"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/posapi"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/receipt"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/remote"
)

func main() {
	mode := flag.String("mode", "", "pos-terminal | data-service")
	port := flag.Int("port", 0, "http port")
	cfgPath := flag.String("config", "", "path to config.yaml (probed if empty)")
	flag.Parse()

	lg := logger.New("bootstrap")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path := *cfgPath
	if path == "" {
		p, err := config.FindConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, "no config.yaml found; pass --config")
			os.Exit(2)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": path})
		os.Exit(1)
	}

	switch *mode {
	case "pos-terminal":
		if *port == 0 {
			*port = 3000
		}
		lg.Info("service_started", map[string]any{"service": "pos-terminal", "port": *port})
		if err := runTerminal(ctx, *port, cfg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "data-service":
		if *port == 0 {
			*port = 3001
		}
		lg.Info("service_started", map[string]any{"service": "data-service", "port": *port})
		if err := runDataService(ctx, *port, cfg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: pos-terminal | data-service")
		os.Exit(2)
	}
}

func runDataService(ctx context.Context, port int, cfg config.App) error {
	if err := cfg.Validate(true, false, false); err != nil {
		return err
	}
	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()
	return dataservice.Run(ctx, port, conn)
}

func runTerminal(ctx context.Context, port int, cfg config.App) error {
	if err := cfg.Validate(false, false, true); err != nil {
		return err
	}
	lg := logger.New("pos-terminal")

	client := remote.NewClient(cfg.Remote.BaseURL, time.Duration(cfg.Remote.TimeoutMS)*time.Millisecond)

	// The kitchen channel is best-effort: a broker that is down must not
	// keep the till from opening.
	var dispatcher settlement.Dispatcher
	if cfg.Rabbit.Host != "" {
		mqc, err := mq.Dial(cfg.Rabbit)
		if err != nil {
			lg.Warn("kitchen_channel_unavailable", map[string]any{"err": err.Error()})
		} else {
			defer mqc.Close()
			if err := mqc.DeclareAll(); err != nil {
				lg.Warn("kitchen_declare_failed", map[string]any{"err": err.Error()})
			} else {
				dispatcher = kitchen.NewDispatcher(mqc, lg)
			}
		}
	}

	reg := table.NewRegistry(cfg.POS.TakeawayTableID)
	store := cart.NewStore(reg)
	ctrl := table.NewController(reg, store)
	calc := checkout.NewCalculator(decimal.NewFromInt(int64(cfg.POS.VATPercent)).Div(decimal.NewFromInt(100)))
	printer := receipt.NewPrinter("MixiPOS Coffee", os.Stdout)
	coord := settlement.NewCoordinator(calc, client, dispatcher, printer, reg, ctrl, store, lg)
	svc := posapi.NewService(calc, reg, ctrl, store, coord, lg)

	if err := svc.LoadData(ctx, client); err != nil {
		return err
	}

	rec := recovery.NewStore(cfg.POS.SnapshotPath, lg)
	if snap, ok := rec.Restore(); ok {
		reg.Seed(snap.ActiveOrders)
		if snap.SelectedTable != "" {
			if err := ctrl.Select(snap.SelectedTable); err != nil {
				lg.Warn("snapshot_selection_dropped", map[string]any{"table_id": snap.SelectedTable})
			}
		}
		lg.Info("orders_restored", map[string]any{"orders": len(snap.ActiveOrders)})
	}
	go rec.Run(ctx, time.Duration(cfg.POS.SnapshotSeconds)*time.Second, reg)

	return posapi.Run(ctx, port, svc, lg)
}
