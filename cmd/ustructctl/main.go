package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oisee/ustructctl/pkg/automaton"
	"github.com/oisee/ustructctl/pkg/event"
	"github.com/oisee/ustructctl/pkg/operation"
	"github.com/oisee/ustructctl/pkg/store"
	"github.com/oisee/ustructctl/pkg/ustruct"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ustructctl",
		Short: "Build and transform automata for decentralized discrete-event control synthesis",
	}

	rootCmd.AddCommand(
		newBuildCmd(),
		newReachabilityCmd("trim", operation.KindTrim),
		newReachabilityCmd("accessible", operation.KindAccessible),
		newReachabilityCmd("coaccessible", operation.KindCoaccessible),
		newIntersectCmd(),
		newUnionCmd(),
		newSynthCmd(),
		newPruneCmd(),
		newCrushCmd(),
		newInspectCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openAutomaton(headerPath, bodyPath string) (*automaton.Automaton, error) {
	a, err := automaton.Open(headerPath, bodyPath)
	if err != nil {
		return nil, fmt.Errorf("open %s/%s: %w", headerPath, bodyPath, err)
	}
	return a, nil
}

func openUStructure(headerPath, bodyPath string) (*ustruct.UStructure, error) {
	a, err := openAutomaton(headerPath, bodyPath)
	if err != nil {
		return nil, err
	}
	return &ustruct.UStructure{Automaton: a}, nil
}

func newBuildCmd() *cobra.Command {
	var outHeader, outBody string
	var controllers int
	cmd := &cobra.Command{
		Use:   "build <script>",
		Short: "Build an automaton from a builder script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildFromScript(args[0], outHeader, outBody, controllers)
			if err != nil {
				return err
			}
			fmt.Printf("built %d states, initial=%d\n", a.NumberOfStates(), a.InitialStateID())
			return nil
		},
	}
	cmd.Flags().StringVar(&outHeader, "out-header", "", "output header file path (required)")
	cmd.Flags().StringVar(&outBody, "out-body", "", "output body file path (required)")
	cmd.Flags().IntVar(&controllers, "controllers", 1, "number of controllers K")
	cmd.MarkFlagRequired("out-header")
	cmd.MarkFlagRequired("out-body")
	return cmd
}

func newReachabilityCmd(name string, kind operation.Kind) *cobra.Command {
	var outHeader, outBody string
	cmd := &cobra.Command{
		Use:   name + " <header> <body>",
		Short: "Compute the " + name + " subset and write it to a new automaton",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAutomaton(args[0], args[1])
			if err != nil {
				return err
			}
			res, err := operation.Run(operation.Config{Kind: kind, A: a, OutHeaderPath: outHeader, OutBodyPath: outBody})
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			fmt.Printf("%s: %d states\n", name, res.Automaton.NumberOfStates())
			return nil
		},
	}
	cmd.Flags().StringVar(&outHeader, "out-header", "", "output header file path (required)")
	cmd.Flags().StringVar(&outBody, "out-body", "", "output body file path (required)")
	cmd.MarkFlagRequired("out-header")
	cmd.MarkFlagRequired("out-body")
	return cmd
}

func newIntersectCmd() *cobra.Command {
	return newBinaryCmd("intersect", operation.KindIntersect)
}

func newUnionCmd() *cobra.Command {
	return newBinaryCmd("union", operation.KindUnion)
}

func newBinaryCmd(name string, kind operation.Kind) *cobra.Command {
	var outHeader, outBody string
	cmd := &cobra.Command{
		Use:   name + " <headerA> <bodyA> <headerB> <bodyB>",
		Short: "Compute the " + name + " of two automata",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAutomaton(args[0], args[1])
			if err != nil {
				return err
			}
			b, err := openAutomaton(args[2], args[3])
			if err != nil {
				return err
			}
			res, err := operation.Run(operation.Config{Kind: kind, A: a, B: b, OutHeaderPath: outHeader, OutBodyPath: outBody})
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			fmt.Printf("%s: %d states\n", name, res.Automaton.NumberOfStates())
			return nil
		},
	}
	cmd.Flags().StringVar(&outHeader, "out-header", "", "output header file path (required)")
	cmd.Flags().StringVar(&outBody, "out-body", "", "output body file path (required)")
	cmd.MarkFlagRequired("out-header")
	cmd.MarkFlagRequired("out-body")
	return cmd
}

func newSynthCmd() *cobra.Command {
	var outHeader, outBody string
	cmd := &cobra.Command{
		Use:   "synth <header> <body>",
		Short: "Run synchronized composition over a plant automaton, producing a U-Structure",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openAutomaton(args[0], args[1])
			if err != nil {
				return err
			}
			res, err := operation.Run(operation.Config{Kind: operation.KindSynthesize, A: g, OutHeaderPath: outHeader, OutBodyPath: outBody})
			if err != nil {
				return fmt.Errorf("synth: %w", err)
			}
			fmt.Printf("synth: %d composite states\n", res.UStructure.NumberOfStates())
			return nil
		},
	}
	cmd.Flags().StringVar(&outHeader, "out-header", "", "output header file path (required)")
	cmd.Flags().StringVar(&outBody, "out-body", "", "output body file path (required)")
	cmd.MarkFlagRequired("out-header")
	cmd.MarkFlagRequired("out-body")
	return cmd
}

func newPruneCmd() *cobra.Command {
	var outHeader, outBody string
	var start uint64
	var commVecStr string
	var protocolStr string
	cmd := &cobra.Command{
		Use:   "prune <header> <body>",
		Short: "Prune a U-Structure for a protocol/communication pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := openUStructure(args[0], args[1])
			if err != nil {
				return err
			}
			commVec := strings.Split(commVecStr, "_")
			protocol, err := parseProtocol(protocolStr)
			if err != nil {
				return fmt.Errorf("prune: %w", err)
			}
			res, err := operation.Run(operation.Config{
				Kind:             operation.KindPrune,
				U:                u,
				OutHeaderPath:    outHeader,
				OutBodyPath:      outBody,
				Protocol:         protocol,
				CommunicationVec: commVec,
				StartID:          store.StateId(start),
			})
			if err != nil {
				return fmt.Errorf("prune: %w", err)
			}
			fmt.Printf("prune: %d states\n", res.UStructure.NumberOfStates())
			return nil
		},
	}
	cmd.Flags().StringVar(&outHeader, "out-header", "", "output header file path (required)")
	cmd.Flags().StringVar(&outBody, "out-body", "", "output body file path (required)")
	cmd.Flags().Uint64Var(&start, "start", 0, "start state id (required)")
	cmd.Flags().StringVar(&commVecStr, "comm-vec", "", "communication label vector, e.g. a_*_b (required)")
	cmd.Flags().StringVar(&protocolStr, "protocol", "", "comma-separated from:event:to triples naming protocol transitions")
	cmd.MarkFlagRequired("out-header")
	cmd.MarkFlagRequired("out-body")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("comm-vec")
	return cmd
}

// parseProtocol parses "from:eventid:to,from:eventid:to" into TransitionData.
func parseProtocol(s string) ([]store.TransitionData, error) {
	if s == "" {
		return nil, nil
	}
	var out []store.TransitionData
	for _, triple := range strings.Split(s, ",") {
		parts := strings.Split(triple, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid protocol triple %q, want from:eventid:to", triple)
		}
		from, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid from state id %q: %w", parts[0], err)
		}
		ev, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid event id %q: %w", parts[1], err)
		}
		to, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid to state id %q: %w", parts[2], err)
		}
		out = append(out, store.TransitionData{
			InitialState: store.StateId(from),
			Event:        uint32(ev),
			TargetState:  store.StateId(to),
		})
	}
	return out, nil
}

func newCrushCmd() *cobra.Command {
	var outHeader, outBody string
	var controller int
	var costPolicyStr string
	cmd := &cobra.Command{
		Use:   "crush <header> <body>",
		Short: "Crush a U-Structure over one controller's indistinguishability",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := openUStructure(args[0], args[1])
			if err != nil {
				return err
			}
			policy, err := parseCostPolicy(costPolicyStr)
			if err != nil {
				return fmt.Errorf("crush: %w", err)
			}
			res, err := operation.Run(operation.Config{
				Kind:            operation.KindCrush,
				U:               u,
				OutHeaderPath:   outHeader,
				OutBodyPath:     outBody,
				ControllerIndex: controller,
				CostPolicy:      policy,
			})
			if err != nil {
				return fmt.Errorf("crush: %w", err)
			}
			fmt.Printf("crush: %d states\n", res.UStructure.NumberOfStates())
			return nil
		},
	}
	cmd.Flags().StringVar(&outHeader, "out-header", "", "output header file path (required)")
	cmd.Flags().StringVar(&outBody, "out-body", "", "output body file path (required)")
	cmd.Flags().IntVar(&controller, "controller", 1, "1-indexed controller to crush over")
	cmd.Flags().StringVar(&costPolicyStr, "cost-policy", "sum", "cost combination policy: max, sum, or average")
	cmd.MarkFlagRequired("out-header")
	cmd.MarkFlagRequired("out-body")
	return cmd
}

func parseCostPolicy(s string) (ustruct.CostPolicy, error) {
	switch strings.ToLower(s) {
	case "max":
		return ustruct.CostMax, nil
	case "sum":
		return ustruct.CostSum, nil
	case "average", "avg":
		return ustruct.CostAverage, nil
	default:
		return 0, fmt.Errorf("unknown cost policy %q: want max, sum, or average", s)
	}
}

func newInspectCmd() *cobra.Command {
	var lub bool
	cmd := &cobra.Command{
		Use:   "inspect <header> <body>",
		Short: "Print a summary of an automaton's events and states",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAutomaton(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("kind: %v\n", a.Kind())
			fmt.Printf("controllers: %d\n", a.NumberOfControllers())
			fmt.Printf("states: %d (initial=%d)\n", a.NumberOfStates(), a.InitialStateID())
			events := a.GetEvents()
			fmt.Printf("events: %d\n", len(events))
			for _, ev := range events {
				fmt.Printf("  %d: %s (observable=%v controllable=%v)\n", ev.ID, ev.Label, ev.Observable, ev.Controllable)
			}
			if lub {
				set := event.NewEventSet()
				for _, ev := range events {
					set.AddWithID(ev.ID, ev.Label, ev.Observable, ev.Controllable)
				}
				for _, v := range event.GenerateLeastUpperBounds(set) {
					fmt.Printf("  lub: %s\n", v.String())
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&lub, "lub", false, "also print least-upper-bound label vectors (debug)")
	return cmd
}
