// Package store implements the store assembler: the pipeline that
// discovers reportable documents, hashes the source files they
// reference, reconciles that hash set against what the remote already
// holds, bundles only the missing content, enforces a size ceiling,
// and performs a single fail-fast upload with guaranteed temporary
// resource cleanup.
package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"go.uber.org/zap"

	coreerrors "github.com/davidahmann/reportstore/core/errors"
	"github.com/davidahmann/reportstore/core/fsx"
)

// Product identifies the remote product a run is stored under.
type Product struct {
	ID       int64
	Endpoint string
}

// ProductClient is the remote authority collaborator: it resolves the
// target product and answers whether the caller holds store authority
// for it.
type ProductClient interface {
	ResolveProduct(ctx context.Context) (Product, error)
	CheckStorePermission(ctx context.Context, productID int64) (bool, error)
}

// StoreRequest is the single upload transaction dispatched to the
// remote store. Name must be non-empty before dispatch. Payload is the
// wire-safe (base64) form of the compressed bundle. Force asks the
// remote to discard prior results for the run name first.
type StoreRequest struct {
	Name    string
	Tag     string
	Version string
	Payload string
	Force   bool
}

// StoreClient is the remote store collaborator.
type StoreClient interface {
	GetMissingContentHashes(ctx context.Context, hashes []string) ([]string, error)
	MassStoreRun(ctx context.Context, request StoreRequest) error
}

// Options configures one store invocation. It is resolved once at the
// process boundary; the pipeline itself never consults flags or
// environment.
type Options struct {
	// Inputs are report files or analyzer output directories, in order.
	Inputs []string
	// Name is the run name. When empty it is derived from metadata
	// documents and derivation failure aborts the invocation.
	Name string
	// Tag optionally labels this store within the run's history.
	Tag string
	// Force requests destructive replacement of prior results.
	Force bool
	// Version is the protocol/schema version reported to the remote.
	Version string
	// TempDir overrides the directory for the scoped bundle file.
	TempDir string
	// MaxUploadBytes overrides the bundle ceiling; zero means the
	// default 1 GiB.
	MaxUploadBytes int64

	Parser  ReportParser
	Product ProductClient
	Store   StoreClient
	Logger  *zap.Logger
}

// Result summarizes a completed store operation.
type Result struct {
	RunName        string
	Reports        int
	DistinctHashes int
	MissingHashes  int
	BundleBytes    int64
}

// Run executes one store operation: permission check, assembly into a
// scoped temporary bundle, size check, encode, one store RPC. The
// permission check runs before any bundling work as an ordering
// invariant, and the temporary bundle is removed on every path out.
func Run(ctx context.Context, options Options) (Result, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validateOptions(options); err != nil {
		return Result{}, err
	}
	ceiling := options.MaxUploadBytes
	if ceiling == 0 {
		ceiling = MaxUploadBytes
	}

	// Permission first: a denial must never cost the caller a bundling
	// pass, and the remote must see no other RPC before it.
	product, err := options.Product.ResolveProduct(ctx)
	if err != nil {
		return Result{}, coreerrors.Wrap(fmt.Errorf("resolve product: %w", err),
			coreerrors.CategoryStoreFailed, "product_resolve_failed",
			"check the product URL and that the server is reachable")
	}
	granted, err := options.Product.CheckStorePermission(ctx, product.ID)
	if err != nil {
		return Result{}, coreerrors.Wrap(fmt.Errorf("check store permission: %w", err),
			coreerrors.CategoryStoreFailed, "permission_check_failed",
			"check the product URL and that the server is reachable")
	}
	if !granted {
		return Result{}, coreerrors.Wrap(
			fmt.Errorf("not authorized to store results in product %q", product.Endpoint),
			coreerrors.CategoryAuthorization, "store_permission_denied",
			"ask a product administrator for STORE permission")
	}

	collected, err := CollectInputs(options.Inputs, logger)
	if err != nil {
		return Result{}, err
	}
	runName := options.Name
	if runName == "" {
		runName, err = DeriveRunName(collected.Metadata)
		if err != nil {
			return Result{}, err
		}
	}
	logger.Info("storing analysis results",
		zap.String("run", runName), zap.Int("reports", len(collected.Reports)))
	if options.Force {
		logger.Info("force store requested: previous results for the run will be deleted",
			zap.String("run", runName))
	}

	bundlePath := fsx.TempBundlePath(options.TempDir, ".zip")
	defer func() {
		if removeErr := fsx.RemoveIfExists(bundlePath); removeErr != nil {
			logger.Warn("failed to remove temporary bundle",
				zap.String("path", bundlePath), zap.Error(removeErr))
		}
	}()

	hashes := NewContentHashMap()
	hasher := Hasher{Parser: options.Parser, Logger: logger}
	surviving := hasher.HashReports(collected.Reports, hashes)

	missing, err := reconcileMissingHashes(ctx, options.Store, hashes, logger)
	if err != nil {
		return Result{}, err
	}

	assembler := Assembler{Logger: logger}
	input := AssembleInput{
		Reports:  surviving,
		Metadata: collected.Metadata,
		Hashes:   hashes,
		Missing:  missing,
	}
	if err := assembler.WriteBundle(bundlePath, input); err != nil {
		return Result{}, err
	}

	info, err := os.Stat(bundlePath)
	if err != nil {
		return Result{}, coreerrors.Wrap(fmt.Errorf("stat bundle: %w", err),
			coreerrors.CategoryIOFailure, "bundle_stat_failed",
			"check temp directory permissions")
	}
	if info.Size() > ceiling {
		return Result{}, coreerrors.Wrap(
			fmt.Errorf("bundle is %d bytes, above the %d byte upload ceiling", info.Size(), ceiling),
			coreerrors.CategorySizeExceeded, "bundle_too_large",
			"store fewer inputs per run")
	}

	payload, err := encodeBundle(bundlePath)
	if err != nil {
		return Result{}, err
	}

	request := StoreRequest{
		Name:    runName,
		Tag:     options.Tag,
		Version: options.Version,
		Payload: payload,
		Force:   options.Force,
	}
	if err := options.Store.MassStoreRun(ctx, request); err != nil {
		return Result{}, coreerrors.Wrap(fmt.Errorf("mass store run: %w", err),
			coreerrors.CategoryStoreFailed, "mass_store_failed",
			"check server logs; the operation is single-shot and was not retried")
	}

	logger.Info("storage finished successfully",
		zap.String("run", runName), zap.Int64("bundle_bytes", info.Size()))
	return Result{
		RunName:        runName,
		Reports:        len(surviving),
		DistinctHashes: hashes.Len(),
		MissingHashes:  len(missing),
		BundleBytes:    info.Size(),
	}, nil
}

// reconcileMissingHashes issues the one batched dedup query. An empty
// distinct set still proceeds in metadata-only mode but is surfaced
// loudly: an upload with zero content can be misread downstream as
// every prior issue being resolved.
func reconcileMissingHashes(ctx context.Context, client StoreClient, hashes *ContentHashMap, logger *zap.Logger) (map[string]struct{}, error) {
	distinct := hashes.DistinctHashes()
	if len(distinct) == 0 {
		logger.Warn("there is no report content to store; " +
			"after uploading these results previous reports become resolved")
		return map[string]struct{}{}, nil
	}
	missing, err := client.GetMissingContentHashes(ctx, distinct)
	if err != nil {
		return nil, coreerrors.Wrap(fmt.Errorf("get missing content hashes: %w", err),
			coreerrors.CategoryStoreFailed, "missing_hash_query_failed",
			"check server logs; the operation is single-shot and was not retried")
	}
	set := make(map[string]struct{}, len(missing))
	for _, hash := range missing {
		set[hash] = struct{}{}
	}
	return set, nil
}

// encodeBundle turns the compressed bundle into the wire-safe payload
// form the transport requires.
func encodeBundle(path string) (string, error) {
	// #nosec G304 -- path is the invocation-scoped temp bundle.
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", coreerrors.Wrap(fmt.Errorf("read bundle for encoding: %w", err),
			coreerrors.CategoryIOFailure, "bundle_encode_failed",
			"check temp directory permissions")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func validateOptions(options Options) error {
	if len(options.Inputs) == 0 {
		return coreerrors.New("at least one input path is required",
			coreerrors.CategoryInvalidInput, "inputs_required",
			"pass report files or analyzer output directories")
	}
	if options.Parser == nil {
		return coreerrors.New("report parser is required",
			coreerrors.CategoryInternal, "parser_required",
			"wire a report parser into the store options")
	}
	if options.Product == nil || options.Store == nil {
		return coreerrors.New("remote clients are required",
			coreerrors.CategoryInternal, "clients_required",
			"wire product and store clients into the store options")
	}
	if options.MaxUploadBytes < 0 {
		return coreerrors.New("upload ceiling must not be negative",
			coreerrors.CategoryInvalidInput, "invalid_upload_ceiling",
			"leave MaxUploadBytes at zero for the default")
	}
	return nil
}
