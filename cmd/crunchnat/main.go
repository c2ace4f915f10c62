// crunchnat is the thin CLI driver for the CrunchNAT core: it parses
// external/internal networks and an algorithm name, then dispatches to
// validate, forward, reverse, or apply. It is a collaborator, not part of the
// core (spec.md §1, §6); it owns no bijection logic of its own and
// bears no correctness requirements beyond faithfully printing what
// the core returns.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rbreathe/crunchnat"
	"github.com/rbreathe/crunchnat/internal/clilog"
	"github.com/rbreathe/crunchnat/internal/dataplane"
	"github.com/rbreathe/crunchnat/internal/hostnet"
)

var (
	algo     string
	p, q, e  int64
	logLevel string
	log      *clilog.Logger
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "crunchnat external/net internal/net",
		Short: "Bijective mapping between internal addresses and external address:port ranges",
		Long: `crunchnat computes the CrunchNAT bijection between a block of internal
IPv4 host addresses and a smaller block of external IPv4 addresses paired
with disjoint port ranges, with no per-flow state or logs.`,
		Args: cobra.ExactArgs(2),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log = clilog.New(clilog.Level(logLevel), clilog.FormatConsole, nil)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			facade, err := newFacade(args)
			if err != nil {
				return err
			}
			fmt.Printf("Hosts per external: %d\n", facade.HostsPerExternal())
			fmt.Printf("Ports per host: %d\n", facade.PortsPerHost())
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&algo, "algo", "a", string(crunchnat.Secure), "CrunchNAT algorithm: simple, stripe, or secure")
	root.PersistentFlags().Int64Var(&p, "p", crunchnat.DefaultP, "secure algorithm prime p")
	root.PersistentFlags().Int64Var(&q, "q", crunchnat.DefaultQ, "secure algorithm prime q")
	root.PersistentFlags().Int64Var(&e, "e", crunchnat.DefaultE, "secure algorithm exponent e")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(newValidateCmd(), newForwardCmd(), newReverseCmd(), newApplyCmd())
	return root
}

func newFacade(networks []string) (*crunchnat.Facade, error) {
	opts := &crunchnat.Options{P: p, Q: q, E: e}
	facade, err := crunchnat.New(networks[0], networks[1], algo, opts)
	if err != nil {
		return nil, errors.Wrap(err, "construct facade")
	}
	return facade, nil
}

func newValidateCmd() *cobra.Command {
	var checkHost bool
	var reportPath string
	cmd := &cobra.Command{
		Use:   "validate external/net internal/net",
		Short: "Validate algorithm with the provided external/internal networks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			facade, err := newFacade(args)
			if err != nil {
				return err
			}

			collisions, err := facade.CheckForwardCollisions()
			if err != nil {
				return errors.Wrap(err, "check forward collisions")
			}
			if len(collisions) == 0 {
				fmt.Println("Forward collisions: none")
			} else {
				fmt.Printf("Forward collisions: %v\n", collisions)
			}
			log.Info("checked forward collisions", "count", len(collisions))

			bijective, err := facade.CheckBijection(0)
			if err != nil {
				return errors.Wrap(err, "check bijection")
			}
			fmt.Printf("Bijective: %t\n", bijective)
			log.Info("checked bijection", "ok", bijective)

			if checkHost {
				reports, err := checkHostReachability(args[0], args[1])
				if err != nil {
					log.Warn("host reachability check failed", "error", err.Error())
				} else {
					for _, report := range reports {
						fmt.Printf("Host routes for %s: %v (local address: %t)\n", report.CIDR, report.MatchedRoutes, report.LocalAddress)
					}
					if reportPath != "" {
						if err := writeHostReport(reportPath, reports); err != nil {
							return errors.Wrap(err, "write host report")
						}
						log.Info("wrote host report", "path", reportPath)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkHost, "host", false, "also check whether the networks are reachable from this host's routes")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the --host reachability results as YAML to this path")
	return cmd
}

func checkHostReachability(externalCIDR, internalCIDR string) ([]hostnet.Report, error) {
	checker := hostnet.NewChecker()
	reports := make([]hostnet.Report, 0, 2)
	for _, cidr := range []string{externalCIDR, internalCIDR} {
		report, err := checker.Check(cidr)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func writeHostReport(path string, reports []hostnet.Report) error {
	data, err := yaml.Marshal(reports)
	if err != nil {
		return fmt.Errorf("marshal host report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write host report: %w", err)
	}
	return nil
}

func newForwardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forward external/net internal/net address",
		Short: "Map an internal address to external address and port list",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			facade, err := newFacade(args[:2])
			if err != nil {
				return err
			}
			addr, err := crunchnat.ParseAddress(args[2])
			if err != nil {
				return errors.Wrap(err, "parse address")
			}
			fwd, err := facade.Forward(addr)
			if err != nil {
				return errors.Wrap(err, "forward")
			}
			fmt.Printf("%s: %s\n", fwd.ExternalAddress, formatPorts(fwd.Ports))
			return nil
		},
	}
}

func newReverseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reverse external/net internal/net address:port",
		Short: "Map an external address:port back to the originating internal address",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			facade, err := newFacade(args[:2])
			if err != nil {
				return err
			}
			addrStr, portStr, ok := strings.Cut(args[2], ":")
			if !ok {
				return fmt.Errorf("reverse: expected address:port, got %q", args[2])
			}
			addr, err := crunchnat.ParseAddress(addrStr)
			if err != nil {
				return errors.Wrap(err, "parse address")
			}
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return errors.Wrap(err, "parse port")
			}
			internal, err := facade.Reverse(addr, port)
			if err != nil {
				return errors.Wrap(err, "reverse")
			}
			fmt.Println(internal)
			return nil
		},
	}
}

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply external/net internal/net",
		Short: "Program nftables SNAT rules for every internal host's forward mapping",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			facade, err := newFacade(args)
			if err != nil {
				return err
			}
			mappings, err := dataplane.MappingsForNetwork(facade, args[1])
			if err != nil {
				return errors.Wrap(err, "build mappings")
			}
			reconciler, err := dataplane.NewReconciler()
			if err != nil {
				return errors.Wrap(err, "open nftables connection")
			}
			if err := reconciler.Apply(mappings); err != nil {
				return errors.Wrap(err, "apply nftables rules")
			}
			log.Info("applied nftables rules", "count", len(mappings))
			fmt.Printf("Applied %d SNAT rules\n", len(mappings))
			return nil
		},
	}
}

func formatPorts(ports crunchnat.PortSet) string {
	all := ports.Slice()
	strs := make([]string, len(all))
	for i, p := range all {
		strs[i] = strconv.Itoa(p)
	}
	return "[" + strings.Join(strs, ", ") + "]"
}
