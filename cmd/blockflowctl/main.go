// Command blockflowctl offers a couple of debug probes into a freshly
// booted domain graph: getbestdeps prints the dependency vector BlockFlow
// would hand a miner for a chain, getmempoolinfo prints one group's pool
// sizes. There is no RPC server to dial (spec.md's Non-goals exclude the
// wire/API layer), so blockflowctl boots the same in-memory graph
// cmd/blockflownode would and reads straight off it — a stand-in for the
// teacher's cmd/kaspactl, which instead posts JSON requests over gRPC.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/liuhongchao/alephium/domain/consensus/model"
	"github.com/liuhongchao/alephium/infrastructure/config"
	"github.com/liuhongchao/alephium/internal/nodeboot"
	"github.com/pkg/errors"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: blockflowctl <getbestdeps CHAIN_FROM CHAIN_TO | getmempoolinfo GROUP> [config flags...]")
	}
	command, rest := args[0], args[1:]

	switch command {
	case "getbestdeps":
		return getBestDeps(rest)
	case "getmempoolinfo":
		return getMempoolInfo(rest)
	default:
		return errors.Errorf("unknown command %q", command)
	}
}

func getBestDeps(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: getbestdeps CHAIN_FROM CHAIN_TO [config flags...]")
	}
	from, to, cfg, err := parseChainArgs(args)
	if err != nil {
		return err
	}

	n, err := nodeboot.Boot(cfg)
	if err != nil {
		return err
	}
	deps, err := n.BlockFlow.GetBestDeps(model.ChainIndex{From: model.GroupIndex(from), To: model.GroupIndex(to)})
	if err != nil {
		return err
	}
	return printJSON(struct {
		Chain string   `json:"chain"`
		Deps  []string `json:"deps"`
	}{
		Chain: fmt.Sprintf("(%d,%d)", from, to),
		Deps:  hashStrings(deps),
	})
}

func getMempoolInfo(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: getmempoolinfo GROUP [config flags...]")
	}
	group, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrap(err, "parsing GROUP")
	}
	cfg, err := config.Load(args[1:])
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}

	n, err := nodeboot.Boot(cfg)
	if err != nil {
		return err
	}
	pool, ok := n.MemPools[model.GroupIndex(group)]
	if !ok {
		return errors.Errorf("this broker does not own group %d", group)
	}
	return printJSON(struct {
		Group   int `json:"group"`
		Shared  int `json:"sharedPoolSize"`
		Pending int `json:"pendingPoolSize"`
	}{
		Group:   group,
		Shared:  pool.SharedLen(),
		Pending: pool.PendingLen(),
	})
}

func parseChainArgs(args []string) (from, to int, cfg *config.Config, err error) {
	from, err = strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, nil, errors.Wrap(err, "parsing CHAIN_FROM")
	}
	to, err = strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, nil, errors.Wrap(err, "parsing CHAIN_TO")
	}
	cfg, err = config.Load(args[2:])
	if err != nil {
		return 0, 0, nil, errors.Wrap(err, "loading configuration")
	}
	return from, to, cfg, nil
}

func hashStrings(hashes []model.Hash) []string {
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = h.String()
	}
	return out
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
