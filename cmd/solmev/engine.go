package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aerofoil/solmev/internal/altcache"
	"github.com/aerofoil/solmev/internal/bootstrap"
	"github.com/aerofoil/solmev/internal/bundle"
	"github.com/aerofoil/solmev/internal/cache"
	"github.com/aerofoil/solmev/internal/codec"
	"github.com/aerofoil/solmev/internal/config"
	"github.com/aerofoil/solmev/internal/evidence"
	"github.com/aerofoil/solmev/internal/feeoracle"
	"github.com/aerofoil/solmev/internal/ingress"
	"github.com/aerofoil/solmev/internal/opportunity"
	"github.com/aerofoil/solmev/internal/speculative"
	"github.com/aerofoil/solmev/internal/telemetry"
	"github.com/aerofoil/solmev/internal/topology"
	"github.com/aerofoil/solmev/internal/txdecode"
	"github.com/aerofoil/solmev/internal/types"
	"github.com/aerofoil/solmev/internal/venue"
	"github.com/aerofoil/solmev/internal/venue/meteoradlmm"
	"github.com/aerofoil/solmev/internal/venue/pump"
	"github.com/aerofoil/solmev/internal/venue/raydiumclmm"
	_ "github.com/aerofoil/solmev/internal/venue/register"
)

func bindRunFlags(cmd *cobra.Command, v *viper.Viper) {
	config.BindFlags(cmd, v)
}

// engine bundles every long-lived component the run daemon wires
// together. rpcClient/wallet/builder/submitter/payer/tipAccounts are only
// populated when a payer keypair and RPC/relay endpoints are configured;
// a daemon run without them still decodes, tracks topology, and scores
// opportunities, it just never builds or submits a bundle.
type engine struct {
	cfg      config.Config
	log      *zap.Logger
	caches   *cache.Caches
	alts     *altcache.Cache
	topo     *topology.Oracle
	overlay  *speculative.Overlay
	fees     *feeoracle.Oracle
	accuracy *speculative.Recorder
	metrics  *telemetry.Metrics
	summary  *telemetry.Summary
	sink     evidence.Sink
	reg      *bundle.Registry
	stream   *ingress.ChannelStream
	stop     chan struct{}

	payer       solana.PrivateKey
	rpcClient   *bootstrap.Client
	wallet      *bundle.Wallet
	builder     *bundle.Builder
	submitter   *bundle.Submitter
	tipAccounts []types.Pubkey

	// inflight caps bundle submission at one per pool: the builder
	// goroutine holds the slot until its submission resolves.
	inflightMu sync.Mutex
	inflight   map[types.Pubkey]struct{}
}

func runEngine(cmd *cobra.Command, v *viper.Viper, configFile string) error {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return fmt.Errorf("solmev: load config: %w", err)
	}

	zlog, err := telemetry.NewLogger(cfg.Dev)
	if err != nil {
		return fmt.Errorf("solmev: build logger: %w", err)
	}
	defer zlog.Sync()

	e, err := newEngine(cfg, zlog)
	if err != nil {
		return fmt.Errorf("solmev: build engine: %w", err)
	}
	defer e.sink.Close()

	zlog.Info("engine starting",
		zap.String("grpc_endpoint", cfg.GRPCEndpoint),
		zap.String("evidence_sink", cfg.EvidenceSink),
		zap.Bool("submission_enabled", e.builder != nil && e.submitter != nil),
	)

	go e.summary.Run(cfg.SummaryInterval, e.stop)
	go e.sweepOverlay(cfg.PendingTxTimeout)

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				zlog.Warn("metrics server exited", zap.Error(err))
			}
		}()
	}

	return e.stream.Run()
}

func newEngine(cfg config.Config, zlog *zap.Logger) (*engine, error) {
	caches := cache.NewCaches()

	staticAmmConfigs := map[types.Pubkey]struct{}{}

	var sink evidence.Sink
	var err error
	switch cfg.EvidenceSink {
	case "sqlite":
		sink, err = evidence.NewSQLiteSink(cfg.EvidencePath)
	default:
		sink, err = evidence.NewJSONLSink(cfg.EvidencePath, cfg.HighWaterMark)
	}
	if err != nil {
		return nil, fmt.Errorf("build evidence sink: %w", err)
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	e := &engine{
		cfg:     cfg,
		log:     zlog,
		caches:  caches,
		alts:    altcache.New(nil),
		overlay: speculative.NewOverlay(),
		fees:    feeoracle.New(),
		// 10 bps tolerance over 1000-sample windows for predicted-vs-
		// observed reserve validation.
		accuracy: speculative.NewRecorder(10, 1000),
		metrics:  metrics,
		summary:  telemetry.NewSummary(zlog),
		sink:     sink,
		reg:      bundle.NewRegistry(4096),
		stream:   ingress.NewChannelStream(cfg.HighWaterMark),
		stop:     make(chan struct{}),
		inflight: make(map[types.Pubkey]struct{}),
	}
	e.topo = topology.NewOracle(caches, deriveDependencies, 0, staticAmmConfigs)

	// Submission infrastructure is optional: a payer keypair, an RPC
	// endpoint, and at least one relay endpoint are each independently
	// required before the engine will ever build or submit a bundle.
	if cfg.PayerKeypairPath != "" {
		payer, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.PayerKeypairPath)
		if err != nil {
			return nil, fmt.Errorf("load payer keypair: %w", err)
		}
		e.payer = payer
		e.builder = bundle.NewBuilder(payer)
	}
	if cfg.RPCEndpoint != "" {
		e.rpcClient = bootstrap.NewClient(cfg.RPCEndpoint, 10)
		e.wallet = bundle.NewWallet(e.rpcClient)
		// With an RPC endpoint available, ALT misses can be backfilled.
		e.alts = altcache.New(e.fetchALT)
	}
	if err := e.alts.LoadHotlist(cfg.ALTHotlistPath); err != nil {
		return nil, fmt.Errorf("load alt hotlist: %w", err)
	}
	if len(cfg.RelayEndpoints) > 0 {
		relays := make([]bundle.RelayClient, len(cfg.RelayEndpoints))
		for i, ep := range cfg.RelayEndpoints {
			relays[i] = bundle.NewJitoRelay(ep)
		}
		e.submitter = bundle.NewSubmitter(relays, cfg.RelayMaxRetry, e.reg)
	}
	for _, s := range cfg.TipAccounts {
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			zlog.Warn("skipping malformed tip account", zap.String("value", s), zap.Error(err))
			continue
		}
		e.tipAccounts = append(e.tipAccounts, pk)
	}

	e.stream.OnEvent(e.handleEvent)
	return e, nil
}

// handleEvent is the hot-path dispatcher: cache commit, lifecycle
// transition, speculative overlay, and (on a pending tx) an opportunity
// scan, all synchronous on the critical worker. Only the final bundle
// build/submit step, when reached, suspends onto a goroutine.
func (e *engine) handleEvent(ev ingress.Event) {
	switch {
	case ev.Account != nil:
		e.handleAccountUpdate(*ev.Account)
	case ev.Tx != nil:
		e.handleTxUpdate(*ev.Tx)
	}
}

// handleAccountUpdate routes one account update through venue dispatch,
// then (whether or not it decoded as a pool) through the vault/tick
// array/bin array/amm-config classifiers, committing whichever cache
// applies and attempting the affected pool's lifecycle transition.
func (e *engine) handleAccountUpdate(u types.AccountUpdate) {
	ps, vn, outcome, err := venue.Dispatch(u.Owner, u.Pubkey, u.Data)
	e.metrics.DecodeOutcomes.WithLabelValues(string(outcome), string(vn)).Inc()

	switch outcome {
	case venue.OutcomeDecoded:
		if !e.topo.AllowPoolWrite(u.Pubkey, u.Source, u.Slot) {
			e.summary.Incr("stale_pool_write_blocked")
			return
		}
		if e.caches.Pools.Commit(u.Pubkey, ps, u.Slot, u.WriteVersion, u.Source) {
			e.maybeRefresh(u.Pubkey, ps, u.Slot)
			e.activatePool(u.Pubkey, u.Slot)
		}
		return
	case venue.OutcomeDecodeFail:
		e.log.Warn("pool decode failed",
			zap.String("venue", string(vn)),
			zap.String("pubkey", u.Pubkey.String()),
			zap.Error(err))
		return
	}

	// OutcomeNonTarget or OutcomeNonPool: not a pool account, but it may
	// still be a vault, tick array, bin array, or amm config account that
	// a frozen pool topology depends on.
	if venue.IsTokenAccount(u.Owner, u.Data) {
		vb, err := venue.DecodeVaultBalance(u.Pubkey, u.Data)
		if err != nil {
			return
		}
		if e.caches.Vaults.Commit(u.Pubkey, vb, u.Slot, u.WriteVersion, u.Source) {
			e.activateDependents(u.Pubkey)
		}
		return
	}

	if raydiumclmm.IsTickArray(u.Data) {
		pool, err := codec.Pubkey(u.Data, 8)
		if err != nil {
			return
		}
		arr, err := raydiumclmm.DecodeTickArray(pool, u.Data)
		if err != nil {
			return
		}
		key := cache.TickArrayKey{Pool: pool, StartIndex: arr.StartIndex}
		if e.caches.TickArrays.Commit(key, arr, u.Slot, u.WriteVersion, u.Source) {
			// The reverse index holds vaults and amm configs only, so the
			// owning pool is re-activated directly.
			if _, ok := e.topo.FrozenTopology(pool); ok {
				state, _ := e.topo.TryActivate(pool)
				e.summary.Incr("lifecycle_" + string(state))
			}
		}
		return
	}

	if meteoradlmm.IsBinArray(u.Data) {
		pool, err := codec.Pubkey(u.Data, 16)
		if err != nil {
			return
		}
		arr, err := meteoradlmm.DecodeBinArray(pool, u.Data)
		if err != nil {
			return
		}
		key := cache.BinArrayKey{Pool: pool, Index: arr.Index}
		if e.caches.BinArrays.Commit(key, arr, u.Slot, u.WriteVersion, u.Source) {
			if _, ok := e.topo.FrozenTopology(pool); ok {
				state, _ := e.topo.TryActivate(pool)
				e.summary.Incr("lifecycle_" + string(state))
			}
		}
		return
	}

	// Only commit as an amm config if some already-frozen pool actually
	// references this pubkey; otherwise an unrelated account would be
	// cached under a key nothing ever validates.
	if len(e.topo.DependentPools(u.Pubkey)) > 0 {
		if e.caches.AmmConfigs.Commit(u.Pubkey, u.Data, u.Slot, u.WriteVersion, u.Source) {
			e.activateDependents(u.Pubkey)
		}
	}
}

// activatePool freezes a newly-discovered pool's topology (if not already
// frozen) and attempts activation.
func (e *engine) activatePool(pool types.Pubkey, slot uint64) {
	if e.topo.State(pool) == types.LifecycleDiscovered {
		if err := e.topo.FreezePool(pool, slot, nowMs()); err != nil {
			e.log.Debug("freeze pool failed", zap.String("pool", pool.String()), zap.Error(err))
			return
		}
		e.markAbsentArrays(pool)
	}
	state, _ := e.topo.TryActivate(pool)
	e.summary.Incr("lifecycle_" + string(state))
}

// maybeRefresh re-freezes an Active pool whose price moved far enough
// that the freshly derived tick/bin-array window no longer matches the
// frozen one.
func (e *engine) maybeRefresh(pool types.Pubkey, ps *types.PoolState, slot uint64) {
	if e.topo.State(pool) != types.LifecycleActive {
		return
	}
	ft, ok := e.topo.FrozenTopology(pool)
	if !ok {
		return
	}
	_, _, tickIdx, binIdx, _, err := deriveDependencies(ps)
	if err != nil {
		return
	}
	if equalI32(tickIdx, ft.RequiredTickArrayIndexes) && equalI64(binIdx, ft.RequiredBinArrayIndexes) {
		return
	}
	if err := e.topo.Refresh(pool); err != nil {
		return
	}
	if err := e.topo.FreezePool(pool, slot, nowMs()); err != nil {
		e.log.Warn("re-freeze after drift failed", zap.String("pool", pool.String()), zap.Error(err))
		return
	}
	e.markAbsentArrays(pool)
	e.summary.Incr("topology_refreshed")
}

// markAbsentArrays tombstones every required tick/bin array the pool's
// own existence bitmap marks uninitialized, so activation can treat them
// as virtual zero-liquidity arrays instead of waiting for accounts that
// will never arrive.
func (e *engine) markAbsentArrays(pool types.Pubkey) {
	entry, ok := e.caches.Pools.GetEntry(pool)
	if !ok {
		return
	}
	ft, ok := e.topo.FrozenTopology(pool)
	if !ok {
		return
	}
	ps := entry.Value
	switch ps.Venue {
	case types.VenueConcentrated:
		size := int32(ps.Concentrated.TickSpacing) * raydiumclmm.TicksPerArray
		if size == 0 {
			return
		}
		for _, start := range ft.RequiredTickArrayIndexes {
			if !bitmapHas(ps.Concentrated.TickArrayBitmap, int64(start/size)) {
				e.caches.TickArrays.MarkNonExistent(cache.TickArrayKey{Pool: pool, StartIndex: start})
			}
		}
	case types.VenueBinned:
		for _, idx := range ft.RequiredBinArrayIndexes {
			if !bitmapHas(ps.Binned.BinArrayBitmap, idx) {
				e.caches.BinArrays.MarkNonExistent(cache.BinArrayKey{Pool: pool, Index: idx})
			}
		}
	}
}

// altHeaderSize is the address-lookup-table account's fixed metadata
// header; the table's addresses tile the rest at 32 bytes each.
const altHeaderSize = 56

// altFetchTimeout bounds one background ALT backfill round trip.
const altFetchTimeout = 10 * time.Second

// fetchALT retrieves and parses an address lookup table account,
// implementing altcache.Fetcher for the background backfill path.
func (e *engine) fetchALT(ctx context.Context, table types.Pubkey) ([]types.Pubkey, uint64, uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, altFetchTimeout)
	defer cancel()

	res, err := e.rpcClient.GetAccountInfo(ctx, table)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("fetch alt %s: %w", table, err)
	}
	if res.Value == nil {
		return nil, 0, 0, fmt.Errorf("alt %s not found", table)
	}
	data := res.Value.Data.GetBinary()
	if len(data) < altHeaderSize {
		return nil, 0, 0, fmt.Errorf("alt %s account too short: %d bytes", table, len(data))
	}

	addrs := make([]types.Pubkey, 0, (len(data)-altHeaderSize)/32)
	for off := altHeaderSize; off+32 <= len(data); off += 32 {
		pk, err := codec.Pubkey(data, off)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("alt %s address at %d: %w", table, off, err)
		}
		addrs = append(addrs, pk)
	}
	return addrs, res.Context.Slot, 0, nil
}

// learnFee feeds a confirmed swap's observed vault flows to the fee
// oracle. The in-side vault delta is what the pool retained (input minus
// the fee it kept), so the inferred rate carries a small quadratic-in-fee
// error; for the single-digit-bps fees this learns it stays inside the
// oracle's rounding.
func (e *engine) learnFee(entry types.PendingEntry, pre, post []uint64) {
	if len(entry.Deltas) == 0 {
		return
	}
	d := entry.Deltas[0]
	dir := types.DirAtoB
	inIdx, outIdx := 0, 1
	if d.VaultADelta.IsNegative() {
		dir = types.DirBtoA
		inIdx, outIdx = 1, 0
	}
	if post[inIdx] <= pre[inIdx] || pre[outIdx] <= post[outIdx] {
		return
	}
	obs := feeoracle.Observation{
		ReserveIn:  pre[inIdx],
		ReserveOut: pre[outIdx],
		AmountIn:   post[inIdx] - pre[inIdx],
		ActualOut:  pre[outIdx] - post[outIdx],
	}
	if _, learned := e.fees.Observe(d.Pool, dir, obs); learned {
		e.summary.Incr("fee_learned")
	}
}

// sweepOverlay periodically expires pending overlays older than maxAge
// and drops their unscored reserve predictions.
func (e *engine) sweepOverlay(maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(maxAge)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			expired := e.overlay.SweepExpired(nowMs(), maxAge)
			for _, sig := range expired {
				e.accuracy.Forget(sig)
			}
			if len(expired) > 0 {
				e.summary.Add("overlay_expired", uint64(len(expired)))
			}
			if frac, n := e.accuracy.Accuracy(); n > 0 {
				e.log.Debug("overlay prediction accuracy",
					zap.Float64("fraction", frac), zap.Int("samples", n))
			}
		case <-e.stop:
			return
		}
	}
}

// activateDependents re-attempts activation for every pool whose frozen
// topology references account, after one of its dependencies just
// committed a newer value.
func (e *engine) activateDependents(account types.Pubkey) {
	for _, pool := range e.topo.DependentPools(account) {
		state, _ := e.topo.TryActivate(pool)
		e.summary.Incr("lifecycle_" + string(state))
	}
}

// handleTxUpdate parses a transaction, resolves its ALT lookups, and
// either reverses a confirmed transaction's speculative overlay entry or
// (for a still-pending transaction) extracts its victim swap leg, applies
// the predicted overlay delta, scores a backrun opportunity against the
// post-victim state, records the decision to the evidence sink, and — for
// the one venue with an instruction builder — builds and submits a
// bundle asynchronously.
func (e *engine) handleTxUpdate(tx ingress.TxUpdate) {
	e.summary.Incr("tx_update")

	msg, err := txdecode.ParseMessage(tx.Message)
	if err != nil {
		e.summary.Incr("tx_parse_failed")
		return
	}

	resolved, ok := txdecode.Resolve(msg, e.alts.Lookup)
	if !ok {
		e.summary.Incr("alt_miss")
		// BackfillMiss is fire-and-forget; fetchALT bounds its own
		// lifetime, so no cancel here that would kill the in-flight fetch.
		for _, miss := range resolved.AltMisses {
			e.alts.BackfillMiss(context.Background(), miss)
		}
		return
	}

	if tx.Confirmed {
		// Score the overlay's reserve prediction against the observed
		// post-confirm balances before the entry is reversed, and feed
		// the observed flows to the fee oracle.
		if len(tx.PostTokenBalances) >= 2 {
			e.accuracy.Observe(tx.Signature, tx.PostTokenBalances[0], tx.PostTokenBalances[1])
			if entry, ok := e.overlay.Entry(tx.Signature); ok && len(tx.PreTokenBalances) >= 2 {
				e.learnFee(entry, tx.PreTokenBalances, tx.PostTokenBalances)
			}
		} else {
			e.accuracy.Forget(tx.Signature)
		}
		e.overlay.Remove(tx.Signature)
		return
	}

	leg, pool, found, sawVenueIx := extractVictimLeg(resolved, msg, e.caches)
	if !found {
		if sawVenueIx {
			e.writeReject(types.Pubkey{}, "", opportunity.RejectNoPool, tx.Signature)
		}
		return
	}

	if e.topo.State(pool) != types.LifecycleActive {
		e.writeReject(pool, "", opportunity.RejectMissingTopology, tx.Signature)
		return
	}

	quoter, ok := e.newQuoter(pool)
	if !ok {
		e.writeReject(pool, "", opportunity.RejectMissingReserves, tx.Signature)
		return
	}

	if leg.ExactSide == types.ExactOutput {
		in, err := quoter.backSolveInput(leg.Direction, leg.MinOutputAmount)
		if err != nil {
			e.writeReject(pool, string(quoter.ps.Venue), opportunity.RejectWeirdFlow, tx.Signature)
			return
		}
		leg.InputAmount = in
	}

	if reason, rejected := quoter.preScanReject(leg, tx.Slot); rejected {
		e.writeReject(pool, string(quoter.ps.Venue), reason, tx.Signature)
		return
	}

	estOut, err := quoter.quote(leg.Direction, leg.InputAmount)
	if err != nil {
		e.writeReject(pool, string(quoter.ps.Venue), opportunity.ReasonFromError(err), tx.Signature)
		return
	}
	e.overlay.Apply(types.PendingEntry{
		Signature: tx.Signature,
		Slot:      tx.Slot,
		Deltas:    speculative.InferDeltas(pool, leg.Direction, leg.InputAmount, estOut),
	})
	// reserves() reads through the overlay, so after Apply it is the
	// predicted post-victim state the confirm path will be scored against.
	if baseR, quoteR, ok := quoter.reserves(); ok {
		e.accuracy.Predict(tx.Signature, baseR, quoteR)
	}

	gasCost := opportunity.GasCost(e.cfg.ComputeUnitLimit, e.cfg.ComputeUnitPriceMicroLamports)
	result := opportunity.Scan(leg.Direction, quoter.asSimFunc(), quoter.asSimFunc(), pool, gasCost, e.cfg.TipLamports, e.cfg.MinProfitThreshold, e.cfg.SlippageBps)

	reserveIn, reserveOut, feeBps := quoter.evidenceInputs(leg.Direction)
	sigStr := codec.Base58Encode(tx.Signature[:])

	if !result.Accepted {
		e.metrics.Rejections.WithLabelValues(string(result.Reject)).Inc()
		e.sink.Write(evidence.Event{
			Kind: evidence.KindReject, Timestamp: time.Now(), Pool: pool.String(), Venue: string(quoter.ps.Venue),
			Reason: string(result.Reject), ProfitEst: result.NetProfit, Signature: sigStr,
			ReserveIn: reserveIn, ReserveOut: reserveOut, AmountIn: leg.InputAmount, FeeBps: feeBps,
		})
		return
	}

	e.sink.Write(evidence.Event{
		Kind: evidence.KindDetect, Timestamp: time.Now(), Pool: pool.String(), Venue: string(quoter.ps.Venue),
		ProfitEst: result.NetProfit, Signature: sigStr,
		ReserveIn: reserveIn, ReserveOut: reserveOut, AmountIn: leg.InputAmount, FeeBps: feeBps,
	})

	e.maybeBuildBundle(tx, leg, pool, result, quoter.ps)
}

// writeReject records an early-stage rejection (before an opportunity
// scan ever runs) to the evidence sink.
func (e *engine) writeReject(pool types.Pubkey, venueName string, reason opportunity.RejectReason, sig [64]byte) {
	e.metrics.Rejections.WithLabelValues(string(reason)).Inc()
	e.sink.Write(evidence.Event{
		Kind: evidence.KindReject, Timestamp: time.Now(), Pool: pool.String(), Venue: venueName,
		Reason: string(reason), Signature: codec.Base58Encode(sig[:]),
	})
}

// maybeBuildBundle builds and submits a backrun bundle for an accepted
// opportunity, but only for the pump venue: it is the only venue this
// tree has a swap-instruction builder for, so backrunning a Raydium or
// Meteora victim is detected and scored but never executed. Runs on its
// own goroutine since RPC blockhash fetch and relay submission must not
// block the critical worker.
func (e *engine) maybeBuildBundle(tx ingress.TxUpdate, leg types.SwapLeg, pool types.Pubkey, result opportunity.Result, ps *types.PoolState) {
	if e.builder == nil || e.rpcClient == nil || e.submitter == nil || len(e.tipAccounts) == 0 {
		return
	}
	if leg.ProgramID != venue.PumpSwapProgramID || ps.CPPair == nil {
		return
	}
	if len(tx.Raw) == 0 {
		e.log.Debug("bundle: no raw victim transaction available, skipping")
		return
	}

	e.inflightMu.Lock()
	if _, busy := e.inflight[pool]; busy {
		e.inflightMu.Unlock()
		e.summary.Incr("bundle_inflight_skipped")
		return
	}
	e.inflight[pool] = struct{}{}
	e.inflightMu.Unlock()

	go func() {
		defer func() {
			e.inflightMu.Lock()
			delete(e.inflight, pool)
			e.inflightMu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.BundleSubmitTimeout)
		defer cancel()

		payerPub := e.payer.PublicKey()
		baseAta, createBase, err := e.wallet.EnsureATA(ctx, payerPub, ps.CPPair.BaseMint)
		if err != nil {
			e.log.Warn("bundle: ensure base ata", zap.Error(err))
			return
		}
		quoteAta, createQuote, err := e.wallet.EnsureATA(ctx, payerPub, ps.CPPair.QuoteMint)
		if err != nil {
			e.log.Warn("bundle: ensure quote ata", zap.Error(err))
			return
		}

		accounts := pump.SwapAccounts{
			Pool:          pool,
			GlobalConfig:  pump.GlobalConfig,
			BaseVault:     ps.CPPair.BaseVault,
			QuoteVault:    ps.CPPair.QuoteVault,
			UserBaseAta:   baseAta,
			UserQuoteAta:  quoteAta,
			UserAuth:      payerPub,
			TokenProgram:  solana.TokenProgramID,
			TokenProgram2: solana.TokenProgramID,
		}
		enterIx := pump.NewSwapInstruction(accounts, result.Best.InputAmount, result.MinOutIn, types.ExactInput)
		exitIx := pump.NewSwapInstruction(accounts, result.Best.Intermediate, result.MinOutExit, types.ExactInput)

		enterIxs := append(append([]solana.Instruction{}, createBase...), createQuote...)
		enterIxs = append(enterIxs, enterIx)
		exitIxs := []solana.Instruction{exitIx}

		blockhash, err := e.rpcClient.GetLatestBlockhash(ctx)
		if err != nil {
			e.log.Warn("bundle: get latest blockhash", zap.Error(err))
			return
		}

		tipAccount := randomTipAccount(e.tipAccounts)
		b, err := e.builder.BuildBackrun(tx.Raw, enterIxs, exitIxs, e.cfg.TipLamports, tipAccount, blockhash)
		if err != nil {
			e.log.Warn("bundle: build backrun", zap.Error(err))
			return
		}
		b.ID = codec.Base58Encode(tx.Signature[:])
		b.CreatedAtMs = nowMs()

		if err := bundle.Validate(b, nowMs()); err != nil {
			e.log.Warn("bundle: failed validation", zap.Error(err))
			return
		}

		relayID, err := e.submitter.Submit(ctx, b)
		if err != nil {
			e.log.Warn("bundle: submit failed", zap.Error(err))
			return
		}
		e.metrics.BundlesSubmitted.Inc()

		var reserveIn, reserveOut uint64
		var feeBps uint32
		if q, ok := e.newQuoter(pool); ok {
			reserveIn, reserveOut, feeBps = q.evidenceInputs(leg.Direction)
		}
		e.sink.Write(evidence.Event{
			Kind: evidence.KindSubmit, Timestamp: time.Now(), Pool: pool.String(), Venue: string(ps.Venue),
			ProfitEst: result.NetProfit, Signature: relayID,
			ReserveIn: reserveIn, ReserveOut: reserveOut, AmountIn: leg.InputAmount, FeeBps: feeBps,
		})
	}()
}

// dependencyRadius is how many tick/bin arrays on each side of the
// current price the frozen topology requires. A price drift out of this
// window triggers a refresh cycle (maybeRefresh).
const dependencyRadius = 2

// deriveDependencies implements the topology oracle's DependencyResolver
// across all four venue families.
func deriveDependencies(ps *types.PoolState) (baseVault, quoteVault types.Pubkey, tickIdx []int32, binIdx []int64, ammConfig *types.Pubkey, err error) {
	switch ps.Venue {
	case types.VenueCPPair:
		p := ps.CPPair
		return p.BaseVault, p.QuoteVault, nil, nil, p.AmmConfig, nil
	case types.VenueCPBook:
		p := ps.CPBook
		return p.BaseVault, p.QuoteVault, nil, nil, p.AmmConfig, nil
	case types.VenueConcentrated:
		p := ps.Concentrated
		cfg := p.AmmConfig
		return p.Token0Vault, p.Token1Vault, tickArrayWindow(p.CurrentTick, p.TickSpacing), nil, &cfg, nil
	case types.VenueBinned:
		p := ps.Binned
		return p.ReserveX, p.ReserveY, nil, binArrayWindow(p.ActiveID), nil, nil
	default:
		return types.Pubkey{}, types.Pubkey{}, nil, nil, nil, fmt.Errorf("solmev: unknown venue %q", ps.Venue)
	}
}

// tickArrayWindow returns the start indexes of the tick arrays within
// dependencyRadius arrays of the current tick, in ascending order.
func tickArrayWindow(currentTick int32, tickSpacing uint16) []int32 {
	size := int32(tickSpacing) * raydiumclmm.TicksPerArray
	if size == 0 {
		return nil
	}
	center := floorDiv(int64(currentTick), int64(size))
	out := make([]int32, 0, 2*dependencyRadius+1)
	for o := int64(-dependencyRadius); o <= dependencyRadius; o++ {
		out = append(out, int32((center+o)*int64(size)))
	}
	return out
}

// binArrayWindow returns the bin-array indexes within dependencyRadius
// arrays of the active bin, in ascending order.
func binArrayWindow(activeID int32) []int64 {
	center := floorDiv(int64(activeID), types.BinsPerArray)
	out := make([]int64, 0, 2*dependencyRadius+1)
	for o := int64(-dependencyRadius); o <= dependencyRadius; o++ {
		out = append(out, center+o)
	}
	return out
}

// floorDiv divides rounding toward negative infinity, matching the
// on-chain array tiling for negative ticks/bin ids.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

// bitmapHas reports whether the 1024-bit existence bitmap, covering array
// indexes [-512, 512), marks idx initialized.
func bitmapHas(bitmap [16]uint64, idx int64) bool {
	pos := idx + 512
	if pos < 0 || pos >= 1024 {
		return false
	}
	return bitmap[pos/64]&(1<<uint(pos%64)) != 0
}

func equalI32(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalI64(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// randomTipAccount picks a relay tip account from the configured set.
func randomTipAccount(accounts []types.Pubkey) types.Pubkey {
	return accounts[rand.Intn(len(accounts))]
}

// nowMs is the engine package's wall-clock helper; internal/bundle
// defines its own unexported equivalent since it's a separate package.
func nowMs() int64 { return time.Now().UnixMilli() }
