package router

import "net/http"

type LoanRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type OfferRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type WalletRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

func New(
	loanController LoanRouteRegistrar,
	offerController OfferRouteRegistrar,
	walletController WalletRouteRegistrar,
	authMiddleware func(http.Handler) http.Handler,
) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if loanController != nil {
		loanController.RegisterRoutes(mux, authMiddleware)
	}
	if offerController != nil {
		offerController.RegisterRoutes(mux, authMiddleware)
	}
	if walletController != nil {
		walletController.RegisterRoutes(mux, authMiddleware)
	}

	return mux
}
