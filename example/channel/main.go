package main

import (
	"context"
	"fmt"
	"log"

	twistmux "github.com/FIBO-Engineer/twist-mux"
)

func main() {
	cfg, err := twistmux.LoadConfig("../../config/twist_mux.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, snapshots, closeSink := twistmux.NewChannelSink(32)
	defer closeSink()

	go statusWorker("diag", snapshots)

	mux, err := twistmux.New(cfg, twistmux.WithDiagnosticsSink(sink))
	if err != nil {
		log.Fatalf("build mux: %v", err)
	}

	if err := mux.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("mux exited: %v", err)
	}
}

func statusWorker(name string, snapshots <-chan twistmux.Status) {
	for st := range snapshots {
		stale := 0
		for _, h := range st.Velocities {
			if h.Condition() != twistmux.ConditionOK {
				stale++
			}
		}
		fmt.Printf("[%s] %s winner=%q stale_inputs=%d/%d lock_priority=%d\n",
			name, st.TakenAt.Format("15:04:05"), st.Winner, stale, len(st.Velocities), st.LockPriority)
	}
}
