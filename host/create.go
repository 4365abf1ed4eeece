package host

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/reglet-dev/ledgerhost/domain/entities"
	"github.com/reglet-dev/ledgerhost/domain/errors"
	"github.com/reglet-dev/ledgerhost/host/registry"
)

// noncePrefix keys the number of contracts each contract has created.
const noncePrefix = "n/"

func nonceKey(creator entities.Address) []byte {
	return append([]byte(noncePrefix), creator.Bytes()...)
}

// createAddress derives the address of a contract created by creator:
// keccak256(creator || nonce) or, with a salt, keccak256(0xff || creator ||
// salt || codeHash), truncated to the last 20 bytes.
func createAddress(creator entities.Address, nonce uint64, salt, code []byte) (entities.Address, error) {
	var sum []byte
	if len(salt) > 0 {
		sum = crypto.Keccak256([]byte{0xff}, creator.Bytes(), salt, registry.HashCode(code))
	} else {
		sum = crypto.Keccak256(creator.Bytes(), binary.BigEndian.AppendUint64(nil, nonce))
	}
	return entities.NewAddress(sum[len(sum)-entities.MinAddressLen:])
}

// nextAddress picks the address for req, bumping the creator's nonce when no
// salt is given. The nonce survives a failed creation.
func (f *frame) nextAddress(req entities.CreateRequest) (entities.Address, error) {
	if len(req.Salt) > 0 {
		return createAddress(f.Callee, 0, req.Salt, req.Code)
	}
	key := nonceKey(f.Callee)
	raw, err := f.scope.GetRaw(key)
	if err != nil {
		return entities.Address{}, err
	}
	var nonce uint64
	if len(raw) == 8 {
		nonce = binary.BigEndian.Uint64(raw)
	}
	if err := f.scope.PutRaw(key, binary.BigEndian.AppendUint64(nil, nonce+1)); err != nil {
		return entities.Address{}, err
	}
	return createAddress(f.Callee, nonce, nil, req.Code)
}

// Create implements ports.HostABI.
func (f *frame) Create(gasLimit uint64, req entities.CreateRequest) (entities.Address, entities.CallResult, error) {
	exec := f.tx.exec
	g := exec.cfg.params.Gas
	if err := f.mutate("create", g.CreateCost); err != nil {
		return entities.Address{}, entities.CallResult{}, err
	}
	if err := f.ctx.Err(); err != nil {
		return entities.Address{}, entities.CallResult{}, f.setFault(&errors.TimeoutError{Err: err, Operation: "create"})
	}

	addr, err := f.nextAddress(req)
	if err != nil {
		return entities.Address{}, entities.CallResult{}, f.setFault(err)
	}

	staged := f.scope.Child()
	err = exec.stageDeploy(f.ctx, staged, entities.DeployRequest{
		Address: addr,
		Kind:    req.Kind,
		Dialect: req.Dialect,
		Code:    req.Code,
		ABI:     req.ABI,
	})
	if err != nil {
		staged.Discard()
		return entities.Address{}, entities.Failed(errors.ToErrorDetail(err), nil, 0), nil
	}

	budget, all := f.gas.reserve(gasLimit)
	res, err := f.tx.run(f, callRequest{
		caller:      f.Callee,
		callee:      addr,
		calldata:    req.InitArgs,
		instantiate: true,
		upfront:     g.DeployByteCost * uint64(len(req.Code)),
		scope:       staged,
	}, budget)
	f.gas.refund(budget - res.GasUsed)

	if err != nil {
		staged.Discard()
		return entities.Address{}, res, f.childFault(err, budget, all)
	}
	if err := staged.Merge(); err != nil {
		return entities.Address{}, res, f.setFault(err)
	}
	return addr, res, nil
}
