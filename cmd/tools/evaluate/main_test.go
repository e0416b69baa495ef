package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-promo/internal/checkout"
)

// Twelve $35 boxers: ten get the five-for-$100 price, two stay full price.
const boxers = `{"lineItems":[{"variantId":1,"productId":6748415164580,"price":3500,"quantity":12}]}`

func TestRunEvaluatesStdin(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), zerolog.Nop(), "", "-", false, strings.NewReader(boxers), &out)
	require.NoError(t, err)

	var result checkout.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	require.EqualValues(t, 42000, result.Cart.Summary.Subtotal)
	require.EqualValues(t, 20000+7000, result.Cart.Summary.Total)
}

func TestRunReadsCartFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	require.NoError(t, os.WriteFile(path, []byte(boxers), 0o600))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), zerolog.Nop(), "", path, false, strings.NewReader(""), &out))
	require.Contains(t, out.String(), `"buy_x_get_x"`)
}

func TestRunListsCampaigns(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), zerolog.Nop(), "", "-", true, strings.NewReader(""), &out))

	var campaigns []checkout.CampaignInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &campaigns))
	require.Equal(t, "price-test", campaigns[0].Name)
}

func TestRunRejectsInvalidCart(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), zerolog.Nop(), "", "-", false, strings.NewReader(`{"lineItems":[]}`), &out)
	require.Error(t, err)
	require.Empty(t, out.String())
}
