/*
Package handler provides HTTP handler functions for opening chats and reading their history.
*/
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"marketchat/internal/app/chat"
	"marketchat/internal/pkg/auth/jwt"
	"marketchat/internal/pkg/errs"
	"marketchat/internal/pkg/logx"
	"marketchat/internal/pkg/req"
	"marketchat/internal/pkg/resp"
)

type CreateChatInput struct {
	ProductID   int64 `json:"productId" validate:"gt=0"`
	SellerID    int64 `json:"sellerId" validate:"gt=0"`
	CollectorID int64 `json:"collectorId" validate:"gt=0"`
}

// HandleCreateChat returns the chat for (product, seller, collector), creating it on first
// contact. Only the collector named in the request may call it.
func HandleCreateChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		var input CreateChatInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if identity.UserID != input.CollectorID {
			resp.RespondError(w, r, errs.NewError(errs.ErrOnlyCollectorCanInitiate))
			return
		}

		collector, err := deps.Store.FindUserByID(r.Context(), input.CollectorID)
		if err != nil || !collector.IsCollector() {
			if err != nil && !errors.Is(err, chat.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrOnlyCollectorCanInitiate))
			return
		}

		item, err := deps.Store.FindProductByID(r.Context(), input.ProductID)
		if errors.Is(err, chat.ErrNotFound) {
			resp.RespondError(w, r, errs.NewError(errs.ErrProductNotFound))
			return
		}
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		seller, err := deps.Store.FindUserByID(r.Context(), input.SellerID)
		if errors.Is(err, chat.ErrNotFound) || (err == nil && !seller.IsSeller()) {
			resp.RespondError(w, r, errs.NewError(errs.ErrSellerNotFound))
			return
		}
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		if !item.SoldBy(seller.ID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrProductNotFound))
			return
		}

		c, created, err := deps.Store.FindOrCreateChat(r.Context(), chat.Key{
			ProductID:   item.ID,
			SellerID:    seller.ID,
			CollectorID: collector.ID,
		})
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		if !created {
			resp.RespondSuccess(w, r, c)
			return
		}

		logx.Info("Chat created", "chat_id", c.ID, "product_id", c.ProductID, "seller_id", c.SellerID, "collector_id", c.CollectorID)
		resp.RespondCreated(w, r, c)
	}
}

// HandleListChats returns the caller's chats, newest first.
func HandleListChats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		chats, err := deps.Store.ListChatsByUser(r.Context(), identity.UserID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		if chats == nil {
			chats = []chat.Chat{}
		}
		resp.RespondSuccess(w, r, chats)
	}
}

// HandleGetChat returns one chat of the caller.
func HandleGetChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := loadParticipantChat(w, r, deps)
		if !ok {
			return
		}

		resp.RespondSuccess(w, r, c)
	}
}

// HandleListMessages returns the history of one chat of the caller, oldest first.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := loadParticipantChat(w, r, deps)
		if !ok {
			return
		}

		messages, err := deps.Store.ListMessages(r.Context(), c.ID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		if messages == nil {
			messages = []chat.Message{}
		}
		resp.RespondSuccess(w, r, messages)
	}
}

// loadParticipantChat resolves the {id} URL parameter to a chat the caller takes part in.
// A chat the caller is not part of is reported exactly like a missing one.
func loadParticipantChat(w http.ResponseWriter, r *http.Request, deps *AppDeps) (chat.Chat, bool) {
	identity := jwt.GetPayloadFromContext(r)

	chatID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || chatID <= 0 {
		resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
		return chat.Chat{}, false
	}

	c, err := deps.Store.FindChatByID(r.Context(), chatID)
	if errors.Is(err, chat.ErrNotFound) || (err == nil && !c.HasParticipant(identity.UserID)) {
		resp.RespondError(w, r, errs.NewError(errs.ErrChatNotFound))
		return chat.Chat{}, false
	}
	if err != nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
		return chat.Chat{}, false
	}

	return c, true
}
