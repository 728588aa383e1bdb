package decoder

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/arbcore/pkg/types"
)

// OpenBookV2Span is the byte length of the fixed-layout header fields
// this decoder reads, not including the 8-byte anchor discriminator.
// OpenBook markets hold no reserves on the market account itself — price
// comes from the separate bids/asks order-book accounts, which this
// decoder records as "vault" addresses for the Subscriber to co-subscribe
// the same way it would a vault-linked AMM, even though they hold orders
// rather than token balances.
const OpenBookV2Span = 765

// OpenBookV2Decoder decodes OpenBook V2 (Serum-descendant CLOB) market
// accounts into the best-effort venue header the core needs: the trading
// pair, decimals, taker fee, and the bids/asks account addresses. It does
// NOT compute a mid-price — OpenBook's aggregated bid/ask levels live in
// the bids/asks accounts themselves, which this decoder has no visibility
// into. The PriceModel it returns carries Bid == Ask == 0; the pool stays
// in state with mid_price == 0 (excluded from cycle search, spec's
// "PoolView with mid_price == 0" rule) until a companion reader merges in
// best-bid/best-ask from those accounts. Whether to wire that up at all
// is gated behind config.Config.Calculator.IncludeOrderbookVenues — CLOB
// support is explicitly an admitted approximation.
//
// Grounded on original_source/rust-pool-cache/src/deserializers/openbook_v2.rs's
// OpenBookMarketState (field order and sizes).
type OpenBookV2Decoder struct{}

func (OpenBookV2Decoder) Venue() types.VenueTag { return types.VenueClobOrderbook }
func (OpenBookV2Decoder) Span() int             { return OpenBookV2Span + 8 }

func (OpenBookV2Decoder) Decode(raw []byte) (DecodedPool, error) {
	data := raw
	if len(data) > 8 {
		data = data[8:]
	}
	if len(data) < OpenBookV2Span {
		return DecodedPool{}, fmt.Errorf("%w: openbook v2: expected at least %d bytes, got %d", ErrDecodeFailed, OpenBookV2Span, len(data))
	}

	baseDecimals := data[1]
	quoteDecimals := data[2]

	bids := solana.PublicKeyFromBytes(data[224:256])
	asks := solana.PublicKeyFromBytes(data[256:288])

	takerFeeRaw := int64(binary.LittleEndian.Uint64(data[405:413]))
	takerFee := float64(takerFeeRaw) / 1_000_000 // fixed-point taker_fee, per maker_fee_bps/taker_fee_bps's /100.0 bps convention scaled to a fraction

	baseMint := solana.PublicKeyFromBytes(data[525:557])
	quoteMint := solana.PublicKeyFromBytes(data[557:589])

	return DecodedPool{
		Venue:         types.VenueClobOrderbook,
		Pair:          types.Pair{Base: types.Token(baseMint.String()), Quote: types.Token(quoteMint.String())},
		BaseDecimals:  baseDecimals,
		QuoteDecimals: quoteDecimals,
		Reserves: Reserves{
			Kind:       ReservesFromVaults,
			VaultBase:  bids.String(),
			VaultQuote: asks.String(),
		},
		PriceModel: PriceModel{
			Kind: PriceModelOrderbookMid,
			Fee:  takerFee,
		},
	}, nil
}
