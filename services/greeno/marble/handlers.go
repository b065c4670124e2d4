package marble

import (
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/greeno_layer/internal/chain"
	"github.com/R3E-Network/greeno_layer/internal/errors"
	"github.com/R3E-Network/greeno_layer/internal/httputil"
	"github.com/R3E-Network/greeno_layer/services/greeno"
)

// =============================================================================
// Admin Handlers
// =============================================================================

func (s *Service) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	tokenID, err := s.admin.CreateToken(r.Context())
	if err != nil {
		s.writeError(w, r, errors.Internal(err.Error(), err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CreateTokenResponse{TokenID: string(tokenID)})
}

func (s *Service) handleGetTokenSupply(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, errors.BadRequest("Invalid request body").WithDetails("details", err.Error()))
		return
	}
	if req.TokenID == "" {
		s.writeError(w, r, errors.BadRequest("Token ID is required"))
		return
	}

	supply, err := s.admin.TokenSupply(r.Context(), chain.TokenID(req.TokenID))
	if err != nil {
		s.writeError(w, r, errors.Internal(err.Error(), err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TokenSupplyResponse{TokenID: req.TokenID, TotalSupply: supply})
}

func (s *Service) handleMintTokens(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, errors.BadRequest("Invalid request body").WithDetails("details", err.Error()))
		return
	}
	user, err := greeno.ValidateAccountID(req.UserAccountID)
	if err != nil {
		s.writeError(w, r, errors.Validation(err.Error(), err))
		return
	}
	if req.Amount == 0 {
		s.writeError(w, r, errors.Validation("Amount must be a positive integer", nil))
		return
	}
	if req.Amount > math.MaxInt64 {
		s.writeError(w, r, errors.Validation(fmt.Sprintf("Amount must not exceed %d", int64(math.MaxInt64)), nil))
		return
	}

	status, err := s.admin.Mint(r.Context(), req.Amount, user)
	if err != nil {
		se := errors.Internal(err.Error(), err)
		if st := chain.StatusOf(err); st != "" {
			se = se.WithDetails("status", st)
		}
		s.writeError(w, r, se)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Message: fmt.Sprintf("Minted %d tokens", req.Amount),
		Status:  status,
	})
}

func (s *Service) handleBurnTokens(w http.ResponseWriter, r *http.Request) {
	var req BurnRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, errors.BadRequest("Invalid request body").WithDetails("details", err.Error()))
		return
	}
	if req.TokenID == "" {
		s.writeError(w, r, errors.BadRequest("Token ID is required"))
		return
	}

	status, err := s.admin.Burn(r.Context(), chain.TokenID(req.TokenID), req.Amount)
	if err != nil {
		s.writeError(w, r, errors.Internal(err.Error(), err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Message: fmt.Sprintf("Burned %d tokens", req.Amount),
		Status:  status,
	})
}

func (s *Service) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, errors.BadRequest("Invalid request body").WithDetails("details", err.Error()))
		return
	}
	if req.TokenID == "" {
		s.writeError(w, r, errors.BadRequest("Token ID is required"))
		return
	}

	if err := s.admin.Delete(r.Context(), chain.TokenID(req.TokenID)); err != nil {
		if status := chain.StatusOf(err); status != "" {
			s.writeError(w, r, errors.Internal("Failed to delete token: "+status, err))
			return
		}
		s.writeError(w, r, errors.Internal(err.Error(), err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Token %s deleted successfully", req.TokenID),
	})
}

// =============================================================================
// Client Handlers
// =============================================================================

const (
	profileValid   = "Private key is valid and matches the account."
	profileInvalid = "Invalid credentials — private key does not match account."
)

func (s *Service) handleConnectProfile(w http.ResponseWriter, r *http.Request) {
	var req ConnectProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, errors.BadRequest("Invalid request body").WithDetails("details", err.Error()))
		return
	}

	reject := func(err error) {
		s.logger.LogSecurityEvent(r.Context(), "profile_verification_failed", map[string]interface{}{
			"account": req.AccountID,
			"error":   err.Error(),
		})
		httputil.WriteJSON(w, http.StatusUnauthorized, ConnectProfileResponse{
			Success: false,
			Message: profileInvalid,
			Error:   err.Error(),
		})
	}

	account, err := chain.ParseAccountID(req.AccountID)
	if err != nil {
		reject(err)
		return
	}
	key, err := chain.ParsePrivateKey(req.PrivateKey)
	if err != nil {
		reject(err)
		return
	}

	status, err := s.admin.ConnectProfile(r.Context(), account, key)
	if err != nil {
		reject(err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ConnectProfileResponse{
		Success:           true,
		Message:           profileValid,
		TransactionStatus: status,
	})
}

func (s *Service) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	accountID := query.Get("operatorAccountId")
	keyText := query.Get("operatorPrivateKey")
	if accountID == "" || keyText == "" {
		s.writeError(w, r, errors.BadRequest("Missing operatorAccountId or operatorPrivateKey in query parameters."))
		return
	}

	account, err := greeno.ValidateAccountID(accountID)
	if err != nil {
		s.writeError(w, r, errors.Validation(err.Error(), err))
		return
	}
	if _, err := chain.ParsePrivateKey(keyText); err != nil {
		s.writeError(w, r, errors.Validation("Invalid private key format", err).WithDetails("details", err.Error()))
		return
	}

	balance, err := s.admin.TokenBalance(r.Context(), account)
	if err != nil {
		s.writeError(w, r, errors.Internal(err.Error(), err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TokenBalanceResponse{Balance: strconv.FormatUint(balance, 10)})
}

func (s *Service) handleTransferTokens(w http.ResponseWriter, r *http.Request) {
	var req greeno.TransferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, errors.BadRequest("Invalid request body").WithDetails("details", err.Error()))
		return
	}

	outcome, err := s.broker.Transfer(r.Context(), req)
	if err != nil {
		s.writeError(w, r, transferError(err))
		return
	}

	purchase := outcome.Purchase
	s.transfers.Add(1)
	if !purchase.Recorded() {
		s.notRecorded.Add(1)
	}
	if !outcome.Persisted {
		s.mirrorFailures.Add(1)
	}

	s.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
		"sender":          outcome.Transfer.Sender,
		"receivers":       len(outcome.Transfer.Receivers),
		"transaction_id":  purchase.Transfer.TransactionID,
		"contract_status": purchase.ContractStatus,
	}).Info("Token transfer completed")

	httputil.WriteJSON(w, http.StatusOK, TransferResponse{
		Message:        "Token transfer completed successfully",
		TransferStatus: purchase.Transfer.Status,
		TransactionID:  purchase.Transfer.TransactionID,
		ContractID:     string(purchase.ContractID),
		ContractStatus: purchase.ContractStatus,
		Warning:        purchase.Warning,
	})
}

// transferError maps a failed transfer flow onto the HTTP error payload.
func transferError(err error) *errors.ServiceError {
	var (
		validation *greeno.ValidationError
		assoc      *greeno.AssociationError
		status     *greeno.TransferStatusError
		ledger     *chain.StatusError
	)
	switch {
	case stderrors.As(err, &validation):
		se := errors.Validation(validation.Message, err)
		if validation.Details != "" {
			se = se.WithDetails("details", validation.Details)
		}
		return se
	case stderrors.As(err, &assoc):
		se := errors.BadRequest("Token association failed").WithDetails("details", assoc.Err.Error())
		if st := chain.StatusOf(assoc.Err); st != "" {
			se = se.WithDetails("status", st)
		}
		return se
	case stderrors.Is(err, greeno.ErrAmountBelowUnit):
		return errors.Validation("Amounts must not be negative", err).WithDetails("details", err.Error())
	case stderrors.As(err, &status):
		return errors.Upstream(http.StatusBadRequest, "Token transfer failed", err).
			WithDetails("details", status.Error()).
			WithDetails("status", status.Status)
	case stderrors.As(err, &ledger):
		return errors.Upstream(http.StatusBadRequest, "Token transfer failed", err).
			WithDetails("details", fmt.Sprintf("Transfer failed with status: %s", ledger.Status)).
			WithDetails("status", ledger.Status)
	case stderrors.Is(err, greeno.ErrContractNotDeployed):
		return errors.Internal("Smart contract is not deployed", err)
	default:
		return errors.Internal("Internal server error", err).WithDetails("details", err.Error())
	}
}

func (s *Service) handleContractTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.orchestrator.TransactionHistory(r.Context())
	if err != nil {
		s.writeError(w, r, errors.Internal(err.Error(), err))
		return
	}
	if txs == nil {
		txs = []greeno.ContractTransaction{}
	}
	httputil.WriteJSON(w, http.StatusOK, ContractTransactionsResponse{Transactions: txs})
}

func (s *Service) handleContractInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.orchestrator.ContractInfo()
	if err != nil {
		s.writeError(w, r, errors.Internal(err.Error(), err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

func (s *Service) handleFetchTransactions(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	account, err := greeno.ValidateAccountID(userID)
	if err != nil {
		s.writeError(w, r, errors.Validation(err.Error(), err))
		return
	}

	entries, err := s.history.Fetch(r.Context(), account)
	if stderrors.Is(err, greeno.ErrNoTransactions) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{
			"message": "No transactions found for this user",
			"code":    string(errors.CodeNotFound),
		})
		return
	}
	if err != nil {
		s.writeError(w, r, errors.Internal(err.Error(), err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Transactions: entries})
}

func (s *Service) handleBalance(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	v, err := s.valuator.Valuate(r.Context(), accountID)
	if err != nil {
		var (
			validation *greeno.ValidationError
			rate       *greeno.RateError
		)
		switch {
		case stderrors.As(err, &validation):
			s.writeError(w, r, errors.Validation(validation.Message, err))
		case stderrors.As(err, &rate):
			s.writeError(w, r, errors.Internal(rate.Message, err))
		default:
			s.writeError(w, r, errors.Internal(err.Error(), err))
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{
		BalanceHBAR: v.BalanceHBAR.String(),
		BalanceUSD:  v.BalanceUSD.StringFixed(2),
		BalanceTND:  v.BalanceFiat.StringFixed(2),
		Currency:    v.Currency,
		ExchangeRate: ExchangeRate{
			HbarToUSD: v.HbarToUSD,
			USDToTND:  v.USDToFiat,
		},
	})
}

// =============================================================================
// Helpers
// =============================================================================

// writeError logs se with its cause and writes the JSON payload.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, se *errors.ServiceError) {
	entry := s.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"code":   se.Code,
		"status": se.HTTPStatus,
	})
	if se.Err != nil {
		entry = entry.WithError(se.Err)
	}
	if se.HTTPStatus >= http.StatusInternalServerError {
		entry.Error(se.Message)
	} else {
		entry.Warn(se.Message)
	}
	httputil.WriteServiceError(w, r, se)
}
