package host_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/host"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/syndtr/goleveldb/leveldb.(*DB).mpoolDrain"),
	)
}

const kvScript = `
function main(inv) {
    if (inv.method === "store") {
        host.storageStore("value", inv.args[0]);
        return "";
    }
    if (inv.method === "load") {
        return host.storageLoad("value");
    }
    host.revert("unknown method " + inv.method);
}
`

// relayScript calls args[0] with calldata args[1], gas limit args[2] and
// value args[3], and reports the result together with the gas it cost.
const relayScript = `
function main(inv) {
    var a = inv.args;
    host.storageStore("last", inv.method);
    var before = host.gasLeft();
    var r = inv.method === "static"
        ? host.callStatic(a[0], a[1], a[2])
        : host.call(a[0], a[1], a[2], a[3]);
    return JSON.stringify({
        success: r.success,
        data: r.data,
        code: r.code || "",
        error: r.error || "",
        gasUsed: r.gasUsed,
        spent: before - host.gasLeft()
    });
}
`

const revertScript = `
function main(inv) {
    host.storageStore("k", "dirty");
    host.revert("nope", "why");
}
`

const burnScript = `
function main(inv) {
    for (var i = 0; ; i++) {
        host.storageStore("k" + i, "v");
    }
}
`

func forwardScript(name string) string {
	return `
function main(inv) {
    var msg = inv.args[0] + " -> ` + name + `";
    if (inv.args.length === 1) {
        return msg;
    }
    var args = ["forward", msg];
    for (var i = 2; i < inv.args.length; i++) {
        args.push(inv.args[i]);
    }
    var r = host.call(inv.args[1], host.encodeCall.apply(null, args));
    if (!r.success) {
        host.revert(r.error);
    }
    return r.data;
}
`
}

type relayResult struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	GasUsed uint64 `json:"gasUsed"`
	Spent   uint64 `json:"spent"`
}

func newExecutor(t *testing.T, opts ...host.Option) *host.Executor {
	t.Helper()
	opts = append([]host.Option{host.WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	exec, err := host.NewExecutor(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, exec.Close(context.Background())) })
	return exec
}

func address(b byte) entities.Address {
	return entities.MustAddress(bytes.Repeat([]byte{b}, entities.MinAddressLen))
}

func text(t *testing.T, exec *host.Executor, addr entities.Address) string {
	t.Helper()
	s, err := exec.Codec().Encode(addr)
	require.NoError(t, err)
	return s
}

func deploy(t *testing.T, exec *host.Executor, req entities.DeployRequest) {
	t.Helper()
	receipt := exec.Deploy(context.Background(), req)
	require.True(t, receipt.IsSuccess(), receipt.Diagnostic)
}

func deployScript(t *testing.T, exec *host.Executor, addr entities.Address, code string) {
	t.Helper()
	deploy(t, exec, entities.DeployRequest{Address: addr, Kind: entities.KindScript, Code: []byte(code)})
}

func execute(exec *host.Executor, to entities.Address, data []byte) entities.Receipt {
	return exec.Execute(context.Background(), entities.Transaction{To: to, CallData: data})
}

func relay(t *testing.T, receipt entities.Receipt) relayResult {
	t.Helper()
	require.True(t, receipt.IsSuccess(), receipt.Diagnostic)
	var out relayResult
	require.NoError(t, json.Unmarshal(receipt.Result.Data, &out))
	return out
}

func errCode(receipt entities.Receipt) string {
	if receipt.Result.Err == nil {
		return ""
	}
	return receipt.Result.Err.Code
}
