package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cuemby/universalis/pkg/apierr"
	"github.com/cuemby/universalis/pkg/log"
	"github.com/cuemby/universalis/pkg/market"
	"github.com/cuemby/universalis/pkg/upload"
	"github.com/cuemby/universalis/pkg/world"
)

// Server is the HTTP v2 JSON API: current listings, sales history, and
// uploads.
type Server struct {
	aggregator *market.Aggregator
	pipeline   *upload.Pipeline
	resolver   *world.Resolver

	httpServer *http.Server
}

// NewServer builds a Server listening on addr.
func NewServer(addr string, aggregator *market.Aggregator, pipeline *upload.Pipeline, resolver *world.Resolver) *Server {
	s := &Server{aggregator: aggregator, pipeline: pipeline, resolver: resolver}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/{itemId}/{worldOrDc}", s.handleCurrentListings)
	mux.HandleFunc("GET /api/v2/history/{itemId}/{worldOrDc}", s.handleHistory)
	mux.HandleFunc("POST /upload/{apiKey}", s.handleUpload)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      withRequestLogging(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start runs the server until it errors or is shut down.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleCurrentListings(w http.ResponseWriter, r *http.Request) {
	itemID, token, ok := parseItemToken(w, r, s.resolver)
	if !ok {
		return
	}

	views, err := s.aggregator.ResolveAndFetchListings(r.Context(), itemID, token)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}
	log.WithItem(itemID).Debug().Str("world_or_dc", token).Int("count", len(views)).Msg("current listings served")
	writeJSON(w, http.StatusOK, map[string]any{
		"item_id":  itemID,
		"listings": views,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	itemID, token, ok := parseItemToken(w, r, s.resolver)
	if !ok {
		return
	}

	views, err := s.aggregator.ResolveAndFetchSales(r.Context(), itemID, token, 0)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item_id": itemID,
		"entries": views,
	})
}

func parseItemToken(w http.ResponseWriter, r *http.Request, resolver *world.Resolver) (int32, string, bool) {
	token := r.PathValue("worldOrDc")
	if token == "" {
		http.Error(w, "world or data center required", http.StatusNotFound)
		return 0, "", false
	}

	n, err := strconv.Atoi(r.PathValue("itemId"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusNotFound)
		return 0, "", false
	}
	itemID := int32(n)

	if !resolver.IsMarketable(itemID) {
		http.Error(w, "item not marketable", http.StatusNotFound)
		return 0, "", false
	}
	return itemID, token, true
}

// uploadRequestDTO mirrors the upload body schema; JSON wire shape is an API
// concern kept out of pkg/upload's Payload.
type uploadRequestDTO struct {
	WorldID    *int32            `json:"world_id"`
	ItemID     *int32            `json:"item_id"`
	UploaderID string            `json:"uploader_id"`
	Listings   []listingDTO      `json:"listings"`
	Entries    []saleDTO         `json:"entries"`
	TaxRates   *taxRatesDTO      `json:"tax_rates"`
}

type materiaDTO struct {
	SlotID    int32 `json:"slot_id"`
	MateriaID int32 `json:"materia_id"`
}

type listingDTO struct {
	ListingID      string       `json:"listing_id"`
	HQ             bool         `json:"hq"`
	OnMannequin    bool         `json:"on_mannequin"`
	Materia        []materiaDTO `json:"materia"`
	PricePerUnit   int32        `json:"price_per_unit"`
	Quantity       int32        `json:"quantity"`
	DyeID          int32        `json:"dye_id"`
	CreatorID      string       `json:"creator_id"`
	CreatorName    string       `json:"creator_name"`
	LastReviewTime int64        `json:"last_review_time"`
	RetainerID     string       `json:"retainer_id"`
	RetainerName   string       `json:"retainer_name"`
	RetainerCityID int32        `json:"retainer_city_id"`
	SellerID       string       `json:"seller_id"`
}

type saleDTO struct {
	HQ        bool   `json:"hq"`
	UnitPrice int32  `json:"unit_price"`
	Quantity  int32  `json:"quantity"`
	BuyerName string `json:"buyer_name"`
	SoldAt    int64  `json:"timestamp"`
}

type taxRatesDTO struct {
	LimsaLominsa *int32 `json:"limsa_lominsa"`
	Gridania     *int32 `json:"gridania"`
	Uldah        *int32 `json:"uldah"`
	Ishgard      *int32 `json:"ishgard"`
	Kugane       *int32 `json:"kugane"`
	Crystarium   *int32 `json:"crystarium"`
	OldSharlayan *int32 `json:"old_sharlayan"`
	Tuliyollal   *int32 `json:"tuliyollal"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	apiKey := r.PathValue("apiKey")

	var dto uploadRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, r.Context(), apierr.New(apierr.BadRequest, "api.upload", err))
		return
	}

	payload := dtoToPayload(dto)
	err := s.pipeline.Run(r.Context(), apiKey, payload)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}
	uploadLog := log.WithUploader(payload.UploaderID)
	if payload.WorldID != nil {
		uploadLog = log.WithWorld(*payload.WorldID)
	}
	uploadLog.Debug().
		Int("listings", len(payload.Listings)).
		Int("entries", len(payload.Entries)).
		Msg("upload accepted")
	w.WriteHeader(http.StatusOK)
}

func dtoToPayload(dto uploadRequestDTO) *upload.Payload {
	p := &upload.Payload{
		WorldID:    dto.WorldID,
		ItemID:     dto.ItemID,
		UploaderID: dto.UploaderID,
	}

	for _, l := range dto.Listings {
		materia := make([]market.Materia, len(l.Materia))
		for i, m := range l.Materia {
			materia[i] = market.Materia{SlotID: m.SlotID, MateriaID: m.MateriaID}
		}
		p.Listings = append(p.Listings, market.Listing{
			ListingID:      l.ListingID,
			HQ:             l.HQ,
			OnMannequin:    l.OnMannequin,
			Materia:        materia,
			UnitPrice:      l.PricePerUnit,
			Quantity:       l.Quantity,
			DyeID:          l.DyeID,
			CreatorID:      l.CreatorID,
			CreatorName:    l.CreatorName,
			LastReviewTime: time.Unix(l.LastReviewTime, 0).UTC(),
			RetainerID:     l.RetainerID,
			RetainerName:   l.RetainerName,
			RetainerCityID: l.RetainerCityID,
			SellerID:       l.SellerID,
		})
	}

	for _, e := range dto.Entries {
		p.Entries = append(p.Entries, market.Sale{
			HQ:        e.HQ,
			UnitPrice: e.UnitPrice,
			Quantity:  e.Quantity,
			BuyerName: e.BuyerName,
			SoldAt:    time.Unix(e.SoldAt, 0).UTC(),
		})
	}

	if dto.TaxRates != nil {
		p.TaxRates = &market.TaxRatesUpload{
			LimsaLominsa: dto.TaxRates.LimsaLominsa,
			Gridania:     dto.TaxRates.Gridania,
			Uldah:        dto.TaxRates.Uldah,
			Ishgard:      dto.TaxRates.Ishgard,
			Kugane:       dto.TaxRates.Kugane,
			Crystarium:   dto.TaxRates.Crystarium,
			OldSharlayan: dto.TaxRates.OldSharlayan,
			Tuliyollal:   dto.TaxRates.Tuliyollal,
		}
	}

	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, ctx context.Context, err error) {
	kind := apierr.KindOf(err)
	status := kind.Status()
	if ctx.Err() != nil {
		status = apierr.Cancelled.Status()
	}
	if status >= 500 {
		log.Errorf("request failed: %v", err)
	}
	http.Error(w, kind.String(), status)
}
