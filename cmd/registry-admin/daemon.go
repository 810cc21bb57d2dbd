package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ovis-hpc/ldms-registry/internal/daemonctl"
	"github.com/ovis-hpc/ldms-registry/internal/protocol"
)

// withSession connects a Session over a real TCP transport, runs fn,
// and always closes it afterward, matching Communicator.py's
// connect-run-close usage pattern in its CLI callers.
func withSession(fn func(*daemonctl.Session) (daemonctl.Result, error)) error {
	xprt := &daemonctl.TCPTransport{}
	s := daemonctl.New(xprt, daemonHost, daemonPort, slog.Default())
	if err := s.Connect(); err != nil {
		return fmt.Errorf("connect to %s:%s: %w", daemonHost, daemonPort, err)
	}
	defer s.Close()

	res, err := fn(s)
	if err != nil {
		return err
	}
	return printDaemonResult(res)
}

func printDaemonResult(res daemonctl.Result) error {
	if !res.OK() {
		return fmt.Errorf("daemon returned errno %d", res.Errno)
	}
	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(attrMap(res.Attrs))
	}
	for _, a := range res.Attrs {
		fmt.Fprintln(os.Stdout, a.String())
	}
	return nil
}

// attrMap renders a response's attribute list as id -> string value,
// the natural shape for --output json.
func attrMap(attrs []protocol.Attr) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[fmt.Sprintf("%d", a.ID)] = string(a.Value)
	}
	return out
}

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Control a running ldmsd over the daemon control protocol",
	}

	cmd.AddCommand(
		newDaemonStatusCmd(),
		newDirListCmd(),
		newXprtStatsCmd(),
		newThreadStatsCmd(),
		newAuthAddCmd(),
		newListenCmd(),
		newProducerCmd(),
		newUpdaterCmd(),
		newStoragePolicyCmd(),
		newPluginCmd(),
	)
	return cmd
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.DaemonStatus() })
		},
	}
}

func newDirListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "List the metric sets the daemon publishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.DirList() })
		},
	}
}

func newXprtStatsCmd() *cobra.Command {
	var reset bool
	c := &cobra.Command{
		Use:   "xprt-stats",
		Short: "Show transport statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.XprtStats(reset) })
		},
	}
	c.Flags().BoolVar(&reset, "reset", false, "Reset counters after reading")
	return c
}

func newThreadStatsCmd() *cobra.Command {
	var reset bool
	c := &cobra.Command{
		Use:   "thread-stats",
		Short: "Show scheduler thread statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.ThreadStats(reset) })
		},
	}
	c.Flags().BoolVar(&reset, "reset", false, "Reset counters after reading")
	return c
}

func newAuthAddCmd() *cobra.Command {
	var plugin, authOpt string
	c := &cobra.Command{
		Use:   "auth-add <name>",
		Short: "Register an authentication domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.AuthAdd(args[0], plugin, authOpt)
			})
		},
	}
	c.Flags().StringVar(&plugin, "plugin", "none", "Authentication plugin name")
	c.Flags().StringVar(&authOpt, "opt", "", "Plugin-specific option string")
	return c
}

func newListenCmd() *cobra.Command {
	var xprt, port, auth string
	c := &cobra.Command{
		Use:   "listen",
		Short: "Add a listening transport endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.Listen(xprt, port, auth)
			})
		},
	}
	c.Flags().StringVar(&xprt, "xprt", "sock", "Transport type (sock, rdma, ugni)")
	c.Flags().StringVar(&port, "port", "", "Listen port (required)")
	c.Flags().StringVar(&auth, "auth", "", "Authentication domain name")
	_ = c.MarkFlagRequired("port")
	return c
}

func newProducerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "producer", Aliases: []string{"prdcr"}, Short: "Manage producers"}

	var ptype, xprt, host, reconnect, auth string
	var port, perm int
	addCmd := &cobra.Command{
		Use:  "add <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.PrdcrAdd(args[0], ptype, xprt, host, port, reconnect, auth, perm)
			})
		},
	}
	addCmd.Flags().StringVar(&ptype, "type", "active", "Producer type: active, passive")
	addCmd.Flags().StringVar(&xprt, "xprt", "sock", "Transport type")
	addCmd.Flags().StringVar(&host, "host", "", "Producer host (required)")
	addCmd.Flags().IntVar(&port, "port", 411, "Producer port")
	addCmd.Flags().StringVar(&reconnect, "reconnect", "20s", "Reconnect interval")
	addCmd.Flags().StringVar(&auth, "auth", "", "Authentication domain name")
	addCmd.Flags().IntVar(&perm, "perm", 0770, "Metric set access permissions")
	_ = addCmd.MarkFlagRequired("host")

	delCmd := &cobra.Command{
		Use:  "del <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.PrdcrDel(args[0]) })
		},
	}

	var byRegex bool
	startCmd := &cobra.Command{
		Use:  "start <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.PrdcrStart(args[0], byRegex, reconnect)
			})
		},
	}
	startCmd.Flags().BoolVar(&byRegex, "regex", false, "Treat name as a regular expression matching several producers")
	startCmd.Flags().StringVar(&reconnect, "reconnect", "20s", "Reconnect interval")

	stopCmd := &cobra.Command{
		Use:  "stop <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.PrdcrStop(args[0], byRegex)
			})
		},
	}
	stopCmd.Flags().BoolVar(&byRegex, "regex", false, "Treat name as a regular expression matching several producers")

	statusCmd := &cobra.Command{
		Use:  "status <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.PrdcrStatus(args[0]) })
		},
	}

	var instance, setSchema string
	setStatusCmd := &cobra.Command{
		Use:  "set-status [name]",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.PrdcrSetStatus(name, instance, setSchema)
			})
		},
	}
	setStatusCmd.Flags().StringVar(&instance, "instance", "", "Narrow to one metric set instance")
	setStatusCmd.Flags().StringVar(&setSchema, "schema", "", "Narrow to one metric set schema")

	var regex, stream string
	subscribeCmd := &cobra.Command{
		Use:  "subscribe",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.PrdcrSubscribe(regex, stream)
			})
		},
	}
	subscribeCmd.Flags().StringVar(&regex, "regex", "", "Producer name regular expression (required)")
	subscribeCmd.Flags().StringVar(&stream, "stream", "", "Stream name (required)")
	_ = subscribeCmd.MarkFlagRequired("regex")
	_ = subscribeCmd.MarkFlagRequired("stream")

	cmd.AddCommand(addCmd, delCmd, startCmd, stopCmd, statusCmd, setStatusCmd, subscribeCmd)
	return cmd
}

func newUpdaterCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "updater", Aliases: []string{"updtr"}, Short: "Manage updaters"}

	var intervalStr, offsetStr, push string
	var autoSet bool
	var auto bool
	var perm int
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register an updater policy: exactly one of --interval, --push, or --auto-interval is required",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var autoArg *bool
			if autoSet {
				autoArg = &auto
			}
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.UpdtrAdd(args[0], intervalStr, offsetStr, push, autoArg, perm)
			})
		},
	}
	addCmd.Flags().StringVar(&intervalStr, "interval", "", "Sample collection interval")
	addCmd.Flags().StringVar(&offsetStr, "offset", "", "Collection offset within the interval")
	addCmd.Flags().StringVar(&push, `push`, "", `Receive update pushes instead of polling: "onchange" or "true"`)
	addCmd.Flags().BoolVar(&auto, "auto-interval", false, "Derive the interval from each producer's own set intervals")
	addCmd.Flags().IntVar(&perm, "perm", 0770, "Access permissions")
	addCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		autoSet = cmd.Flags().Changed("auto-interval")
		return nil
	}

	delCmd := &cobra.Command{
		Use:  "del <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.UpdtrDel(args[0]) })
		},
	}

	startCmd := &cobra.Command{
		Use:  "start <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.UpdtrStart(args[0], intervalStr, offsetStr)
			})
		},
	}
	startCmd.Flags().StringVar(&intervalStr, "interval", "", "Override the updater's configured interval")
	startCmd.Flags().StringVar(&offsetStr, "offset", "", "Override the updater's configured offset")

	stopCmd := &cobra.Command{
		Use:  "stop <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.UpdtrStop(args[0]) })
		},
	}

	var regex, match string
	prdcrAddCmd := &cobra.Command{
		Use:  "prdcr-add <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.UpdtrPrdcrAdd(args[0], regex)
			})
		},
	}
	prdcrAddCmd.Flags().StringVar(&regex, "regex", "", "Producer name regular expression (required)")
	_ = prdcrAddCmd.MarkFlagRequired("regex")

	prdcrDelCmd := &cobra.Command{
		Use:  "prdcr-del <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.UpdtrPrdcrDel(args[0], regex)
			})
		},
	}
	prdcrDelCmd.Flags().StringVar(&regex, "regex", "", "Producer name regular expression (required)")
	_ = prdcrDelCmd.MarkFlagRequired("regex")

	matchAddCmd := &cobra.Command{
		Use:  "match-add <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.UpdtrMatchAdd(args[0], regex, match)
			})
		},
	}
	matchAddCmd.Flags().StringVar(&regex, "regex", "", "Schema/instance name regular expression (required)")
	matchAddCmd.Flags().StringVar(&match, "match", "inst", "Match kind: inst or schema")
	_ = matchAddCmd.MarkFlagRequired("regex")

	matchDelCmd := &cobra.Command{
		Use:  "match-del <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.UpdtrMatchDel(args[0], regex, match)
			})
		},
	}
	matchDelCmd.Flags().StringVar(&regex, "regex", "", "Schema/instance name regular expression (required)")
	matchDelCmd.Flags().StringVar(&match, "match", "inst", "Match kind: inst or schema")
	_ = matchDelCmd.MarkFlagRequired("regex")

	matchListCmd := &cobra.Command{
		Use:  "match-list <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.UpdtrMatchList(args[0]) })
		},
	}

	statusCmd := &cobra.Command{
		Use:  "status [name]",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.UpdtrStatus(name) })
		},
	}

	cmd.AddCommand(addCmd, delCmd, startCmd, stopCmd, statusCmd, prdcrAddCmd, prdcrDelCmd, matchAddCmd, matchDelCmd, matchListCmd)
	return cmd
}

func newStoragePolicyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "storage-policy", Aliases: []string{"strgp"}, Short: "Manage storage policies"}

	var plugin, container, schemaName string
	var perm int
	addCmd := &cobra.Command{
		Use:  "add <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.StrgpAdd(args[0], plugin, container, schemaName, perm)
			})
		},
	}
	addCmd.Flags().StringVar(&plugin, "plugin", "", "Storage plugin name (required)")
	addCmd.Flags().StringVar(&container, "container", "", "Storage container (required)")
	addCmd.Flags().StringVar(&schemaName, "schema", "", "Metric set schema name to store (required)")
	addCmd.Flags().IntVar(&perm, "perm", 0777, "Storage access permissions")
	_ = addCmd.MarkFlagRequired("plugin")
	_ = addCmd.MarkFlagRequired("container")
	_ = addCmd.MarkFlagRequired("schema")

	delCmd := &cobra.Command{
		Use:  "del <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.StrgpDel(args[0]) })
		},
	}
	startCmd := &cobra.Command{
		Use:  "start <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.StrgpStart(args[0]) })
		},
	}
	stopCmd := &cobra.Command{
		Use:  "stop <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.StrgpStop(args[0]) })
		},
	}

	var regex string
	prdcrAddCmd := &cobra.Command{
		Use:  "prdcr-add <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.StrgpPrdcrAdd(args[0], regex)
			})
		},
	}
	prdcrAddCmd.Flags().StringVar(&regex, "regex", "", "Producer name regular expression (required)")
	_ = prdcrAddCmd.MarkFlagRequired("regex")

	prdcrDelCmd := &cobra.Command{
		Use:  "prdcr-del <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.StrgpPrdcrDel(args[0], regex)
			})
		},
	}
	prdcrDelCmd.Flags().StringVar(&regex, "regex", "", "Producer name regular expression (required)")
	_ = prdcrDelCmd.MarkFlagRequired("regex")

	var metric string
	metricAddCmd := &cobra.Command{
		Use:  "metric-add <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.StrgpMetricAdd(args[0], metric)
			})
		},
	}
	metricAddCmd.Flags().StringVar(&metric, "metric", "", "Metric name (required)")
	_ = metricAddCmd.MarkFlagRequired("metric")

	metricDelCmd := &cobra.Command{
		Use:  "metric-del <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.StrgpMetricDel(args[0], metric)
			})
		},
	}
	metricDelCmd.Flags().StringVar(&metric, "metric", "", "Metric name (required)")
	_ = metricDelCmd.MarkFlagRequired("metric")

	cmd.AddCommand(addCmd, delCmd, startCmd, stopCmd, prdcrAddCmd, prdcrDelCmd, metricAddCmd, metricDelCmd)
	return cmd
}

func newPluginCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "plugin", Aliases: []string{"plugn"}, Short: "Manage plugins"}

	loadCmd := &cobra.Command{
		Use:  "load <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.PlugnLoad(args[0]) })
		},
	}

	var cfgStr string
	configCmd := &cobra.Command{
		Use:  "config <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.PlugnConfig(args[0], cfgStr)
			})
		},
	}
	configCmd.Flags().StringVar(&cfgStr, "config", "", "Plugin configuration string, e.g. \"k1=v1 k2=v2\" (required)")
	_ = configCmd.MarkFlagRequired("config")

	var intervalStr, offsetStr string
	startCmd := &cobra.Command{
		Use:  "start <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) {
				return s.PlugnStart(args[0], intervalStr, offsetStr)
			})
		},
	}
	startCmd.Flags().StringVar(&intervalStr, "interval", "1s", "Sample collection interval")
	startCmd.Flags().StringVar(&offsetStr, "offset", "", "Collection offset within the interval")

	stopCmd := &cobra.Command{
		Use:  "stop <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.PlugnStop(args[0]) })
		},
	}
	statusCmd := &cobra.Command{
		Use:  "status <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.PlugnStatus(args[0]) })
		},
	}
	setsCmd := &cobra.Command{
		Use:  "sets <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *daemonctl.Session) (daemonctl.Result, error) { return s.PlugnSets(args[0]) })
		},
	}

	cmd.AddCommand(loadCmd, configCmd, startCmd, stopCmd, statusCmd, setsCmd)
	return cmd
}
