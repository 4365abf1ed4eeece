package host

import (
	"context"
	"fmt"

	"github.com/reglet-dev/ledgerhost/domain/entities"
)

// Genesis deploys every manifest contract in order and stops at the first
// rejection. Receipts of the deployments attempted so far are returned.
// Code files not already inlined by a Loader are read relative to the
// working directory.
func (e *Executor) Genesis(ctx context.Context, manifest *entities.Manifest) ([]entities.Receipt, error) {
	block := entities.BlockInfo{ChainID: manifest.Chain}
	receipts := make([]entities.Receipt, 0, len(manifest.Contracts))
	for _, c := range manifest.Contracts {
		req, err := e.deployRequest(block, c)
		if err != nil {
			return receipts, fmt.Errorf("genesis: contract %s: %w", c.Name, err)
		}
		receipt := e.Deploy(ctx, req)
		receipts = append(receipts, receipt)
		if !receipt.IsSuccess() {
			return receipts, fmt.Errorf("genesis: contract %s rejected: %s", c.Name, receipt.Diagnostic)
		}
		e.logger.InfoContext(ctx, "genesis contract deployed",
			fieldContract, c.Address,
			fieldKind, c.Kind,
			fieldGasUsed, receipt.Result.GasUsed,
		)
	}
	return receipts, nil
}

func (e *Executor) deployRequest(block entities.BlockInfo, c entities.ManifestContract) (entities.DeployRequest, error) {
	addr, err := e.codec.Decode(c.Address)
	if err != nil {
		return entities.DeployRequest{}, err
	}
	code := []byte(c.Code)
	if c.CodeFile != "" {
		if code, err = readCodeFile(".", c.CodeFile); err != nil {
			return entities.DeployRequest{}, err
		}
	}
	var init []byte
	if c.Init != "" {
		init = []byte(c.Init)
	}
	return entities.DeployRequest{
		Block:    block,
		Address:  addr,
		Kind:     entities.RuntimeKind(c.Kind),
		Dialect:  entities.Dialect(c.Dialect),
		Code:     code,
		ABI:      c.ABI,
		Role:     c.Role,
		InitArgs: init,
		GasLimit: c.GasLimit,
	}, nil
}
