package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/risk"
	"github.com/newthinker/compass/internal/storage/archive"
)

const portfolioDir = "portfolios"

var validPortfolioID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Holdings implements decision.HoldingsProvider over archive storage.
// Each portfolio is a JSON array of positions at portfolios/<id>.json.
type Holdings struct {
	store archive.Storage
}

// NewHoldings creates a holdings provider.
func NewHoldings(store archive.Storage) *Holdings {
	return &Holdings{store: store}
}

// Holdings loads the positions stored for portfolioID.
func (h *Holdings) Holdings(ctx context.Context, portfolioID string) ([]risk.Position, error) {
	p, err := portfolioPath(portfolioID)
	if err != nil {
		return nil, err
	}

	data, err := h.store.Read(ctx, p)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, core.WrapError(core.ErrPortfolioNotFound, fmt.Errorf("portfolio %q", portfolioID))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("reading portfolio %q: %w", portfolioID, err))
	}

	var positions []risk.Position
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("decoding portfolio %q: %w", portfolioID, err))
	}
	for i := range positions {
		class, err := core.ParseAssetClass(string(positions[i].AssetClass))
		if err != nil {
			return nil, core.WrapError(core.ErrProviderFailed,
				fmt.Errorf("portfolio %q position %s: %w", portfolioID, positions[i].Ticker, err))
		}
		positions[i].AssetClass = class
	}
	return positions, nil
}

// Save stores positions as the holdings of portfolioID.
func (h *Holdings) Save(ctx context.Context, portfolioID string, positions []risk.Position) error {
	p, err := portfolioPath(portfolioID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(positions, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding portfolio: %w", err)
	}
	return h.store.Write(ctx, p, data)
}

// IDs lists the stored portfolio IDs.
func (h *Holdings) IDs(ctx context.Context) ([]string, error) {
	paths, err := h.store.List(ctx, portfolioDir)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		id, ok := strings.CutSuffix(path.Base(p), ".json")
		if ok && validPortfolioID.MatchString(id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func portfolioPath(id string) (string, error) {
	if !validPortfolioID.MatchString(id) {
		return "", core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid portfolio id %q", id))
	}
	return path.Join(portfolioDir, id+".json"), nil
}
