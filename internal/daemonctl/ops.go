package daemonctl

import (
	"fmt"
	"strconv"

	"github.com/ovis-hpc/ldms-registry/internal/interval"
	"github.com/ovis-hpc/ldms-registry/internal/protocol"
)

// Result is the (errcode, body) pair every daemon control operation
// returns, matching Communicator.py's convention of returning
// (resp['errcode'], resp['msg']) or (errno.ENOTCONN, None) on failure.
type Result struct {
	Errno int
	Attrs []protocol.Attr
}

func (r Result) OK() bool { return r.Errno == 0 }

func (s *Session) run(cmd protocol.CommandID, attrs []protocol.Attr) (Result, error) {
	errno, out, err := s.doRequest(cmd, attrs)
	return Result{Errno: errno, Attrs: out}, err
}

// AuthAdd registers an authentication domain (Communicator.auth_add).
func (s *Session) AuthAdd(name, plugin, authOpt string) (Result, error) {
	attrs := []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)}
	if plugin != "" {
		attrs = append(attrs, protocol.NewAttr(protocol.AttrPlugin, plugin))
	}
	if authOpt != "" {
		attrs = append(attrs, protocol.NewAttr(protocol.AttrString, authOpt))
	}
	return s.run(protocol.CmdAuthAdd, attrs)
}

// Listen opens a listening endpoint on the daemon (Communicator.listen).
func (s *Session) Listen(xprt, port, auth string) (Result, error) {
	attrs := []protocol.Attr{
		protocol.NewAttr(protocol.AttrXprt, xprt),
		protocol.NewAttr(protocol.AttrPort, port),
	}
	if auth != "" {
		attrs = append(attrs, protocol.NewAttr(protocol.AttrAuth, auth))
	}
	return s.run(protocol.CmdListen, attrs)
}

// DirList queries the daemon's metric-set directory
// (Communicator.dir_list).
func (s *Session) DirList() (Result, error) {
	return s.run(protocol.CmdDirList, nil)
}

// PlugnLoad loads a sampler/collector plugin by name.
func (s *Session) PlugnLoad(name string) (Result, error) {
	return s.run(protocol.CmdPlugnLoad, []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)})
}

// PlugnConfig configures a loaded plugin with a raw option string.
func (s *Session) PlugnConfig(name, cfgStr string) (Result, error) {
	return s.run(protocol.CmdPlugnConfig, []protocol.Attr{
		protocol.NewAttr(protocol.AttrName, name),
		protocol.NewAttr(protocol.AttrString, cfgStr),
	})
}

// PlugnStart starts a plugin's sampling loop at the given interval and
// offset. intervalStr follows the §6.4 grammar; offsetStr is optional
// and normalized against the interval before being sent (§6.4).
func (s *Session) PlugnStart(name, intervalStr, offsetStr string) (Result, error) {
	intervalUS, err := interval.Parse(intervalStr)
	if err != nil {
		return Result{}, err
	}
	attrs := []protocol.Attr{
		protocol.NewAttr(protocol.AttrName, name),
		protocol.NewAttr(protocol.AttrInterval, strconv.FormatInt(intervalUS, 10)),
	}
	if offsetStr != "" {
		offsetUS, err := interval.Parse(offsetStr)
		if err != nil {
			return Result{}, err
		}
		normalized := interval.NormalizeOffset(intervalUS, offsetUS)
		attrs = append(attrs, protocol.NewAttr(protocol.AttrOffset, strconv.FormatInt(normalized, 10)))
	}
	return s.run(protocol.CmdPlugnStart, attrs)
}

// PlugnStop stops a running plugin.
func (s *Session) PlugnStop(name string) (Result, error) {
	return s.run(protocol.CmdPlugnStop, []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)})
}

// PlugnStatus queries one plugin's status, or every plugin's status
// when name is empty.
func (s *Session) PlugnStatus(name string) (Result, error) {
	var attrs []protocol.Attr
	if name != "" {
		attrs = []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)}
	}
	return s.run(protocol.CmdPlugnStatus, attrs)
}

// PlugnSets lists the metric sets a plugin produces.
func (s *Session) PlugnSets(name string) (Result, error) {
	return s.run(protocol.CmdPlugnSets, []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)})
}

// PrdcrAdd registers a producer endpoint.
func (s *Session) PrdcrAdd(name, ptype, xprt, host string, port int, reconnectInterval string, auth string, perm int) (Result, error) {
	reconnectUS, err := interval.Parse(reconnectInterval)
	if err != nil {
		return Result{}, err
	}
	attrs := []protocol.Attr{
		protocol.NewAttr(protocol.AttrName, name),
		protocol.NewAttr(protocol.AttrType, ptype),
		protocol.NewAttr(protocol.AttrXprt, xprt),
		protocol.NewAttr(protocol.AttrHost, host),
		protocol.NewAttr(protocol.AttrPort, strconv.Itoa(port)),
		protocol.NewAttr(protocol.AttrInterval, strconv.FormatInt(reconnectUS, 10)),
	}
	if auth != "" {
		attrs = append(attrs, protocol.NewAttr(protocol.AttrAuth, auth))
	}
	if perm != 0 {
		attrs = append(attrs, protocol.NewAttr(protocol.AttrPerm, strconv.Itoa(perm)))
	}
	return s.run(protocol.CmdPrdcrAdd, attrs)
}

// PrdcrDel removes a producer endpoint by name.
func (s *Session) PrdcrDel(name string) (Result, error) {
	return s.run(protocol.CmdPrdcrDel, []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)})
}

// PrdcrStart starts one producer by name, or every producer matching
// regex when byRegex is true.
func (s *Session) PrdcrStart(name string, byRegex bool, reconnectInterval string) (Result, error) {
	cmd := protocol.CmdPrdcrStart
	attrID := protocol.AttrName
	if byRegex {
		cmd = protocol.CmdPrdcrStartRegex
		attrID = protocol.AttrRegex
	}
	attrs := []protocol.Attr{protocol.NewAttr(attrID, name)}
	if reconnectInterval != "" {
		us, err := interval.Parse(reconnectInterval)
		if err != nil {
			return Result{}, err
		}
		attrs = append(attrs, protocol.NewAttr(protocol.AttrInterval, strconv.FormatInt(us, 10)))
	}
	return s.run(cmd, attrs)
}

// PrdcrStop stops one producer by name, or every producer matching
// regex when byRegex is true.
func (s *Session) PrdcrStop(name string, byRegex bool) (Result, error) {
	cmd := protocol.CmdPrdcrStop
	attrID := protocol.AttrName
	if byRegex {
		cmd = protocol.CmdPrdcrStopRegex
		attrID = protocol.AttrRegex
	}
	return s.run(cmd, []protocol.Attr{protocol.NewAttr(attrID, name)})
}

// PrdcrSubscribe subscribes producers matching regex to a stream.
func (s *Session) PrdcrSubscribe(regex, stream string) (Result, error) {
	return s.run(protocol.CmdPrdcrSubscribe, []protocol.Attr{
		protocol.NewAttr(protocol.AttrRegex, regex),
		protocol.NewAttr(protocol.AttrStream, stream),
	})
}

// PrdcrStatus queries one producer's status, or every producer's
// status when name is empty.
func (s *Session) PrdcrStatus(name string) (Result, error) {
	var attrs []protocol.Attr
	if name != "" {
		attrs = []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)}
	}
	return s.run(protocol.CmdPrdcrStatus, attrs)
}

// PrdcrSetStatus queries the status of a producer's metric sets,
// optionally narrowed to one producer, set instance, and/or schema
// (Communicator.py's prdcrset_status). Any empty argument is omitted
// from the request, matching every other optional-attribute op.
func (s *Session) PrdcrSetStatus(name, instance, schemaName string) (Result, error) {
	var attrs []protocol.Attr
	if name != "" {
		attrs = append(attrs, protocol.NewAttr(protocol.AttrName, name))
	}
	if instance != "" {
		attrs = append(attrs, protocol.NewAttr(protocol.AttrInstance, instance))
	}
	if schemaName != "" {
		attrs = append(attrs, protocol.NewAttr(protocol.AttrSchema, schemaName))
	}
	return s.run(protocol.CmdPrdcrSetStatus, attrs)
}

// UpdtrAdd registers an updater policy. Exactly one of (intervalStr,
// push, auto) selects how the updater schedules set updates: a
// non-empty intervalStr pulls on that interval/offset, a non-empty
// push ("onchange" or "true") registers for update pushes instead of
// polling, and auto (non-nil) schedules by each set's own update
// hint. Any other combination fails EINVAL before a request is ever
// sent (spec §4.5, Communicator.py's updtr_add).
func (s *Session) UpdtrAdd(name, intervalStr, offsetStr, push string, auto *bool, perm int) (Result, error) {
	selected := 0
	if intervalStr != "" {
		selected++
	}
	if push != "" {
		selected++
	}
	if auto != nil {
		selected++
	}
	if selected != 1 {
		return Result{}, fmt.Errorf("%w: updtr_add requires exactly one of interval, push, or auto", ErrInvalidArgument)
	}
	if push != "" && push != "onchange" && push != "true" {
		return Result{}, fmt.Errorf("%w: push must be \"onchange\" or \"true\", got %q", ErrInvalidArgument, push)
	}

	attrs := []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)}
	switch {
	case intervalStr != "":
		intervalUS, err := interval.Parse(intervalStr)
		if err != nil {
			return Result{}, err
		}
		attrs = append(attrs, protocol.NewAttr(protocol.AttrInterval, strconv.FormatInt(intervalUS, 10)))
		if offsetStr != "" {
			offsetUS, err := interval.Parse(offsetStr)
			if err != nil {
				return Result{}, err
			}
			attrs = append(attrs, protocol.NewAttr(protocol.AttrOffset,
				strconv.FormatInt(interval.NormalizeOffset(intervalUS, offsetUS), 10)))
		}
	case push != "":
		attrs = append(attrs, protocol.NewAttr(protocol.AttrPush, push))
	default:
		attrs = append(attrs, protocol.NewAttr(protocol.AttrAutoInterval, strconv.FormatBool(*auto)))
	}
	if perm != 0 {
		attrs = append(attrs, protocol.NewAttr(protocol.AttrPerm, strconv.Itoa(perm)))
	}
	return s.run(protocol.CmdUpdtrAdd, attrs)
}

// UpdtrDel removes an updater policy by name.
func (s *Session) UpdtrDel(name string) (Result, error) {
	return s.run(protocol.CmdUpdtrDel, []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)})
}

// UpdtrStart starts an updater policy, optionally overriding its
// interval/offset.
func (s *Session) UpdtrStart(name, intervalStr, offsetStr string) (Result, error) {
	attrs := []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)}
	if intervalStr != "" {
		intervalUS, err := interval.Parse(intervalStr)
		if err != nil {
			return Result{}, err
		}
		attrs = append(attrs, protocol.NewAttr(protocol.AttrInterval, strconv.FormatInt(intervalUS, 10)))
		if offsetStr != "" {
			offsetUS, err := interval.Parse(offsetStr)
			if err != nil {
				return Result{}, err
			}
			attrs = append(attrs, protocol.NewAttr(protocol.AttrOffset,
				strconv.FormatInt(interval.NormalizeOffset(intervalUS, offsetUS), 10)))
		}
	}
	return s.run(protocol.CmdUpdtrStart, attrs)
}

// UpdtrStop stops an updater policy by name.
func (s *Session) UpdtrStop(name string) (Result, error) {
	return s.run(protocol.CmdUpdtrStop, []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)})
}

// UpdtrStatus queries one updater's status, or every updater's status
// when name is empty (Communicator.py's updtr_status).
func (s *Session) UpdtrStatus(name string) (Result, error) {
	var attrs []protocol.Attr
	if name != "" {
		attrs = []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)}
	}
	return s.run(protocol.CmdUpdtrStatus, attrs)
}

// UpdtrPrdcrAdd/UpdtrPrdcrDel attach/detach producers matching regex to
// an updater policy.
func (s *Session) UpdtrPrdcrAdd(name, regex string) (Result, error) {
	return s.run(protocol.CmdUpdtrPrdcrAdd, []protocol.Attr{
		protocol.NewAttr(protocol.AttrName, name),
		protocol.NewAttr(protocol.AttrRegex, regex),
	})
}

func (s *Session) UpdtrPrdcrDel(name, regex string) (Result, error) {
	return s.run(protocol.CmdUpdtrPrdcrDel, []protocol.Attr{
		protocol.NewAttr(protocol.AttrName, name),
		protocol.NewAttr(protocol.AttrRegex, regex),
	})
}

// UpdtrMatchAdd/UpdtrMatchDel manage an updater's set/schema match
// rules; match is either "inst" or "schema".
func (s *Session) UpdtrMatchAdd(name, regex, match string) (Result, error) {
	return s.run(protocol.CmdUpdtrMatchAdd, []protocol.Attr{
		protocol.NewAttr(protocol.AttrName, name),
		protocol.NewAttr(protocol.AttrRegex, regex),
		protocol.NewAttr(protocol.AttrMatch, match),
	})
}

func (s *Session) UpdtrMatchDel(name, regex, match string) (Result, error) {
	return s.run(protocol.CmdUpdtrMatchDel, []protocol.Attr{
		protocol.NewAttr(protocol.AttrName, name),
		protocol.NewAttr(protocol.AttrRegex, regex),
		protocol.NewAttr(protocol.AttrMatch, match),
	})
}

// UpdtrMatchList lists an updater's match rules.
func (s *Session) UpdtrMatchList(name string) (Result, error) {
	return s.run(protocol.CmdUpdtrMatchList, []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)})
}

// StrgpAdd registers a storage policy.
func (s *Session) StrgpAdd(name, plugin, container, schema string, perm int) (Result, error) {
	attrs := []protocol.Attr{
		protocol.NewAttr(protocol.AttrName, name),
		protocol.NewAttr(protocol.AttrPlugin, plugin),
		protocol.NewAttr(protocol.AttrContainer, container),
		protocol.NewAttr(protocol.AttrSchema, schema),
	}
	if perm != 0 {
		attrs = append(attrs, protocol.NewAttr(protocol.AttrPerm, strconv.Itoa(perm)))
	}
	return s.run(protocol.CmdStrgpAdd, attrs)
}

// StrgpDel removes a storage policy by name.
func (s *Session) StrgpDel(name string) (Result, error) {
	return s.run(protocol.CmdStrgpDel, []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)})
}

// StrgpStart/StrgpStop toggle a storage policy by name.
func (s *Session) StrgpStart(name string) (Result, error) {
	return s.run(protocol.CmdStrgpStart, []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)})
}

func (s *Session) StrgpStop(name string) (Result, error) {
	return s.run(protocol.CmdStrgpStop, []protocol.Attr{protocol.NewAttr(protocol.AttrName, name)})
}

// StrgpPrdcrAdd/StrgpPrdcrDel attach/detach producers matching regex to
// a storage policy.
func (s *Session) StrgpPrdcrAdd(name, regex string) (Result, error) {
	return s.run(protocol.CmdStrgpPrdcrAdd, []protocol.Attr{
		protocol.NewAttr(protocol.AttrName, name),
		protocol.NewAttr(protocol.AttrRegex, regex),
	})
}

func (s *Session) StrgpPrdcrDel(name, regex string) (Result, error) {
	return s.run(protocol.CmdStrgpPrdcrDel, []protocol.Attr{
		protocol.NewAttr(protocol.AttrName, name),
		protocol.NewAttr(protocol.AttrRegex, regex),
	})
}

// StrgpMetricAdd/StrgpMetricDel manage a storage policy's metric list.
func (s *Session) StrgpMetricAdd(name, metric string) (Result, error) {
	return s.run(protocol.CmdStrgpMetricAdd, []protocol.Attr{
		protocol.NewAttr(protocol.AttrName, name),
		protocol.NewAttr(protocol.AttrMetric, metric),
	})
}

func (s *Session) StrgpMetricDel(name, metric string) (Result, error) {
	return s.run(protocol.CmdStrgpMetricDel, []protocol.Attr{
		protocol.NewAttr(protocol.AttrName, name),
		protocol.NewAttr(protocol.AttrMetric, metric),
	})
}

// XprtStats queries transport I/O statistics, optionally resetting
// the counters after the read.
func (s *Session) XprtStats(reset bool) (Result, error) {
	return s.run(protocol.CmdXprtStats, []protocol.Attr{
		protocol.NewAttr(protocol.AttrReset, strconv.FormatBool(reset)),
	})
}

// ThreadStats queries worker-thread statistics, optionally resetting
// the counters after the read.
func (s *Session) ThreadStats(reset bool) (Result, error) {
	return s.run(protocol.CmdThreadStats, []protocol.Attr{
		protocol.NewAttr(protocol.AttrReset, strconv.FormatBool(reset)),
	})
}

// DaemonStatus queries the daemon's overall status.
func (s *Session) DaemonStatus() (Result, error) {
	return s.run(protocol.CmdDaemonStatus, nil)
}
