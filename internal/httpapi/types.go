package httpapi

import (
	"time"

	"sdch/internal/assembler"
	"sdch/internal/budget"
	"sdch/internal/store"
	"sdch/internal/tier"
)

// documentResponse is the shape returned by upload, get, and list.
type documentResponse struct {
	DocID      string            `json:"doc_id"`
	Filename   string            `json:"filename"`
	FileSize   int64             `json:"file_size"`
	MIMEType   string            `json:"mime_type,omitempty"`
	TokenCount int               `json:"token_count"`
	Tier       tier.Info         `json:"tier"`
	Budget     budget.Allocation `json:"budget"`
	PageCount  int               `json:"page_count,omitempty"`
	RowCount   int               `json:"row_count,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (s *Server) docResponse(doc store.Document) documentResponse {
	return documentResponse{
		DocID:      doc.ID.String(),
		Filename:   doc.Filename,
		FileSize:   doc.Size,
		MIMEType:   doc.MIME,
		TokenCount: doc.TokenCount,
		Tier:       tier.Tier(doc.Tier).Info(),
		Budget:     budget.Allocate(s.budget, doc.TokenCount),
		PageCount:  doc.PageCount,
		RowCount:   doc.RowCount,
		CreatedAt:  doc.CreatedAt,
	}
}

// queryRequest is the body of POST /api/query/.
type queryRequest struct {
	DocID string `json:"doc_id"`
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// queryResponse is the assembled context plus its trace.
type queryResponse struct {
	DocID            string               `json:"doc_id"`
	Query            string               `json:"query"`
	Tier             int                  `json:"tier"`
	AssembledContext string               `json:"assembled_context"`
	TokenCount       int                  `json:"token_count"`
	ChunksUsed       []assembler.ChunkUse `json:"chunks_used"`
	StrategyNotes    string               `json:"strategy_notes"`
	Budget           budget.Allocation    `json:"budget"`
}

func queryResponseFrom(r assembler.Result) queryResponse {
	return queryResponse{
		DocID:            r.DocID.String(),
		Query:            r.Query,
		Tier:             r.Tier,
		AssembledContext: r.Context,
		TokenCount:       r.TokenCount,
		ChunksUsed:       r.ChunksUsed,
		StrategyNotes:    r.StrategyNotes,
		Budget:           r.Budget,
	}
}
