// Package web provides the HTML-rendering HTTP handlers.
package web

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"chickiegpt/internal/domain"
	"chickiegpt/internal/session"
	"chickiegpt/internal/store"
)

const (
	conversationLimit = 100
	historyLimit      = 200
	viewLimit         = 500
	titleMaxRunes     = 60

	assistantSystemPrompt = "You are a helpful assistant."

	incorrectPasswordMsg = "Incorrect password."
	lockedEditMsg        = "Please unlock with the password first."
)

// Responder produces assistant replies. Implementations never return errors;
// completion-service failures surface as fixed fallback strings instead.
type Responder interface {
	CompleteChat(ctx context.Context, turns []domain.ChatTurn) string
	AnswerAboutMe(ctx context.Context, facts map[string]string, question string) string
}

// Handler serves the chat and facts pages.
type Handler struct {
	repo          store.Repository
	llm           Responder
	sessions      *session.Manager
	factsPassword string
	tmpl          *template.Template
}

// NewHandler creates the web handler with its dependencies and parses the
// embedded templates.
func NewHandler(repo store.Repository, responder Responder, sessions *session.Manager, factsPassword string) (*Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Handler{
		repo:          repo,
		llm:           responder,
		sessions:      sessions,
		factsPassword: factsPassword,
		tmpl:          tmpl,
	}, nil
}

// RegisterRoutes mounts the application routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.NewConversation)
	r.Post("/new", h.NewConversation)
	r.Get("/c/{cid}", h.Chat)
	r.Post("/c/{cid}", h.Chat)
	r.Get("/facts", h.Facts)
	r.Post("/facts", h.Facts)
}

// NewConversation creates a fresh conversation and redirects to its chat view.
func (h *Handler) NewConversation(w http.ResponseWriter, r *http.Request) {
	id, err := h.repo.CreateConversation(r.Context(), "")
	if err != nil {
		h.serverError(w, "create conversation", err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/c/%d", id), http.StatusFound)
}

// Chat renders a conversation and, on POST, stores the user turn and the
// assistant reply before re-rendering.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	cid, err := strconv.ParseInt(chi.URLParam(r, "cid"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	conv, err := h.repo.GetConversation(ctx, cid)
	if err != nil {
		h.serverError(w, "load conversation", err)
		return
	}
	if conv == nil {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	if r.Method == http.MethodPost {
		if err := h.handleChatPost(ctx, cid, r); err != nil {
			h.serverError(w, "handle message", err)
			return
		}
	}

	messages, err := h.repo.ListMessages(ctx, cid, store.MessageQuery{Limit: viewLimit, Ascending: true})
	if err != nil {
		h.serverError(w, "load messages", err)
		return
	}
	conversations, err := h.repo.ListConversations(ctx, conversationLimit)
	if err != nil {
		h.serverError(w, "load conversations", err)
		return
	}

	h.render(w, viewModel{
		Page:          "chat",
		Conversations: conversations,
		CurrentID:     cid,
		CurrentTitle:  conv.Title,
		Messages:      messages,
	})
}

func (h *Handler) handleChatPost(ctx context.Context, cid int64, r *http.Request) error {
	text := strings.TrimSpace(r.FormValue("message"))
	if text == "" {
		// Empty submissions store nothing and produce no reply.
		return nil
	}
	aboutMe := r.FormValue("about_me") == "on"

	if err := h.repo.InsertMessage(ctx, cid, domain.RoleUser, text); err != nil {
		return fmt.Errorf("store user message: %w", err)
	}
	if err := h.repo.SetTitleIfEmpty(ctx, cid, truncateRunes(text, titleMaxRunes)); err != nil {
		return fmt.Errorf("fill conversation title: %w", err)
	}

	var answer string
	if aboutMe {
		facts, err := h.repo.AllFacts(ctx)
		if err != nil {
			return fmt.Errorf("load facts: %w", err)
		}
		answer = h.llm.AnswerAboutMe(ctx, facts, text)
	} else {
		history, err := h.repo.ListMessages(ctx, cid, store.MessageQuery{Limit: historyLimit, Ascending: true})
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}

		turns := make([]domain.ChatTurn, 0, len(history)+1)
		turns = append(turns, domain.ChatTurn{Role: domain.RoleSystem, Content: assistantSystemPrompt})
		for _, m := range history {
			turns = append(turns, domain.ChatTurn{Role: m.Role, Content: m.Content})
		}
		answer = h.llm.CompleteChat(ctx, turns)
	}

	if err := h.repo.InsertMessage(ctx, cid, domain.RoleAssistant, answer); err != nil {
		return fmt.Errorf("store assistant message: %w", err)
	}
	return nil
}

// Facts renders the password-gated facts editor and handles its actions.
func (h *Handler) Facts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authed := h.sessions.FactsAuthed(r)
	var factsError string

	if r.Method == http.MethodPost {
		action := r.FormValue("action")
		switch action {
		case "login":
			supplied := strings.TrimSpace(r.FormValue("facts_password"))
			if supplied != "" && supplied == h.factsPassword {
				if err := h.sessions.Grant(w); err != nil {
					h.serverError(w, "grant session", err)
					return
				}
				authed = true
			} else {
				// The stored session flag is left as-is; only this render
				// treats the visitor as locked.
				factsError = incorrectPasswordMsg
				authed = false
			}

		case "logout":
			h.sessions.Revoke(w)
			authed = false

		case "upsert", "delete":
			if !authed {
				factsError = lockedEditMsg
				break
			}
			key := strings.TrimSpace(r.FormValue("key"))
			if key == "" {
				break
			}
			if action == "upsert" {
				value := strings.TrimSpace(r.FormValue("value"))
				if err := h.repo.UpsertFact(ctx, key, value); err != nil {
					h.serverError(w, "upsert fact", err)
					return
				}
			} else {
				if err := h.repo.DeleteFact(ctx, key); err != nil {
					h.serverError(w, "delete fact", err)
					return
				}
			}
		}
	}

	var facts []domain.Fact
	if authed {
		var err error
		facts, err = h.repo.ListFacts(ctx)
		if err != nil {
			h.serverError(w, "load facts", err)
			return
		}
	}

	conversations, err := h.repo.ListConversations(ctx, conversationLimit)
	if err != nil {
		h.serverError(w, "load conversations", err)
		return
	}
	var currentID int64
	if len(conversations) > 0 {
		currentID = conversations[0].ID
	}

	h.render(w, viewModel{
		Page:          "facts",
		Conversations: conversations,
		CurrentID:     currentID,
		Facts:         facts,
		FactsAuthed:   authed,
		FactsError:    factsError,
	})
}

func (h *Handler) render(w http.ResponseWriter, vm viewModel) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "page.html", vm); err != nil {
		h.serverError(w, "render template", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	slog.Error("request failed", "op", op, "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// truncateRunes cuts s to at most n characters, not bytes, so multi-byte
// titles survive the 60-character fill.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
