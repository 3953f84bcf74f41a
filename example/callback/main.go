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

	sink := twistmux.NewCallbackSink(func(st twistmux.Status) {
		winner := st.Winner
		if winner == "" {
			winner = "none"
		}
		fmt.Printf("%s winner=%s lock_priority=%d\n",
			st.TakenAt.Format("15:04:05.000"), winner, st.LockPriority)
		for _, h := range st.Velocities {
			fmt.Printf("  velocity %-12s priority=%-3d %s\n", h.Name, h.Priority, h.Condition())
		}
		for _, h := range st.Locks {
			fmt.Printf("  lock     %-12s priority=%-3d %s engaged=%t\n",
				h.Name, h.Priority, h.Condition(), h.Engaged)
		}
	})

	mux, err := twistmux.New(cfg, twistmux.WithDiagnosticsSink(sink))
	if err != nil {
		log.Fatalf("build mux: %v", err)
	}

	if err := mux.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("mux exited: %v", err)
	}
}
