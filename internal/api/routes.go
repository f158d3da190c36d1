package api

import (
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipsift/clipsift/internal/config"
	"github.com/clipsift/clipsift/internal/pipeline"
	"github.com/clipsift/clipsift/internal/scoring"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Get("/videos", listVideosHandler(cfg))
	r.Get("/videos/{id}", getVideoHandler(cfg))
	r.Get("/videos/{id}/scenes", listScenesHandler(cfg))
	r.Get("/videos/{id}/transcript", getTranscriptHandler(cfg))
	r.Get("/videos/{id}/ranking", getRankingHandler(cfg))
	r.Get("/videos/{id}/scenes/{index}/frame", getFrameHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func listVideosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := cfg.CatalogService.GetVideos(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list videos", "INTERNAL_ERROR")
			return
		}

		resp := VideosResponse{Videos: make([]VideoResponse, len(videos))}
		for i, v := range videos {
			resp.Videos[i] = VideoToResponse(v)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, err := cfg.CatalogService.GetVideo(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load video", "INTERNAL_ERROR")
			return
		}
		if video == nil {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, VideoToResponse(video))
	}
}

func listScenesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := chi.URLParam(r, "id")
		scenes, err := cfg.CatalogService.GetScenes(r.Context(), videoID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list scenes", "INTERNAL_ERROR")
			return
		}

		resp := ScenesResponse{VideoID: videoID, Scenes: make([]SceneResponse, len(scenes))}
		for i, sc := range scenes {
			resp.Scenes[i] = SceneResponse{
				Index:    sc.Index,
				StartMs:  sc.StartMs,
				EndMs:    sc.EndMs,
				HasFrame: sc.FramePath != "",
				ClipPath: sc.ClipPath,
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getTranscriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := chi.URLParam(r, "id")
		video, err := cfg.CatalogService.GetVideo(r.Context(), videoID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load video", "INTERNAL_ERROR")
			return
		}
		if video == nil {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}

		segments, err := cfg.CatalogService.GetSegments(r.Context(), videoID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load transcript", "INTERNAL_ERROR")
			return
		}

		resp := TranscriptResponse{VideoID: videoID, Tier: video.TranscriptTier}
		for _, seg := range segments {
			resp.Segments = append(resp.Segments, SegmentResponse{
				StartMs:    seg.StartMs,
				EndMs:      seg.EndMs,
				Text:       seg.Text,
				SourceTier: seg.SourceTier,
				Confidence: seg.Confidence,
			})
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// getRankingHandler serves the derived scoring state from the video's scoring
// document on disk, ordered by descending composite.
func getRankingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := chi.URLParam(r, "id")
		video, err := cfg.CatalogService.GetVideo(r.Context(), videoID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load video", "INTERNAL_ERROR")
			return
		}
		if video == nil {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}

		scorePath := filepath.Join(cfg.OutputDir, video.FolderName, pipeline.ScoreFileName)
		sf, err := scoring.LoadScoreFile(scorePath)
		if err != nil {
			WriteError(w, http.StatusNotFound, "no scoring document for video", "NOT_FOUND")
			return
		}

		resp := RankingResponse{VideoID: videoID}
		for _, entry := range sf.Scenes {
			resp.Scenes = append(resp.Scenes, RankedSceneResponse{
				SceneNumber: entry.SceneNumber,
				Composite:   entry.CompositeScore,
				Selection:   entry.Selection,
				Category:    entry.Category,
				Rationale:   entry.Rationale,
				ScoreError:  entry.ScoreError,
			})
		}
		sort.SliceStable(resp.Scenes, func(i, j int) bool {
			a, b := resp.Scenes[i].Composite, resp.Scenes[j].Composite
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			case *a != *b:
				return *a > *b
			default:
				return resp.Scenes[i].SceneNumber < resp.Scenes[j].SceneNumber
			}
		})
		for i := range resp.Scenes {
			if resp.Scenes[i].Composite != nil {
				resp.Scenes[i].Rank = i + 1
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getFrameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := chi.URLParam(r, "id")
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid scene index", "BAD_REQUEST")
			return
		}

		scenes, err := cfg.CatalogService.GetScenes(r.Context(), videoID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list scenes", "INTERNAL_ERROR")
			return
		}
		for _, sc := range scenes {
			if sc.Index == index {
				if sc.FramePath == "" {
					WriteError(w, http.StatusNotFound, "scene has no frame", "NOT_FOUND")
					return
				}
				http.ServeFile(w, r, sc.FramePath)
				return
			}
		}
		WriteError(w, http.StatusNotFound, "scene not found", "NOT_FOUND")
	}
}
