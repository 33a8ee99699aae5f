package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stopover-food/internal/apperr"
	"stopover-food/internal/logging"
	"stopover-food/internal/publisher"
	"stopover-food/internal/route"
	"stopover-food/internal/venue"
)

type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeInvalidInput   Outcome = "invalid_input"
	OutcomeUnknownLine    Outcome = "unknown_line"
	OutcomeUnknownStation Outcome = "unknown_station"
	OutcomeNoResults      Outcome = "no_results"
	OutcomeError          Outcome = "error"
)

const (
	msgMissingInput   = "未入力の項目があります"
	msgUnknownLine    = "%sは正しい路線名ではありません、正式名称で入力してください"
	msgUnknownStation = "指定された駅名が%sに存在しません（%s: %s）"
	msgUnknownKeyword = "%sは対応していないカテゴリーです"
	msgBadRange       = "検索範囲は1から5で指定してください"
	msgNoResults      = "指定された条件の店舗が存在しません"
	msgFound          = "%d件の店舗が見つかりました"
	msgInternal       = "検索中にエラーが発生しました、時間をおいて再度お試しください"
	msgSuggestion     = "もしかして: %s"
)

type Request struct {
	Line    string
	Start   string
	End     string
	Keyword string
	Range   int
}

type Response struct {
	Results     []venue.Record
	Message     string
	Outcome     Outcome
	Suggestions []string
	Section     route.Section
}

type Resolver interface {
	Resolve(ctx context.Context, line, start, end string) (route.Section, error)
}

type Aggregator interface {
	Aggregate(ctx context.Context, stops []route.SectionStop, p venue.Params) ([]venue.Record, error)
}

type KeywordResolver interface {
	Resolve(keyword string) (string, error)
}

// EventSink receives one event per finished search.
type EventSink interface {
	PublishSearch(ev publisher.SearchEvent) error
}

type Metrics interface {
	SearchObserve(outcome string, d time.Duration)
}

type Service struct {
	resolver       Resolver
	aggregator     Aggregator
	keywords       KeywordResolver
	defaultKeyword string
	defaultRange   int
	events         EventSink
	metrics        Metrics
}

type Option func(*Service)

func WithEvents(s EventSink) Option { return func(svc *Service) { svc.events = s } }

func WithMetrics(m Metrics) Option { return func(svc *Service) { svc.metrics = m } }

// WithDefaults sets the keyword and range tier used when a request leaves
// them empty.
func WithDefaults(keyword string, rangeTier int) Option {
	return func(svc *Service) {
		if keyword != "" {
			svc.defaultKeyword = keyword
		}
		if rangeTier > 0 {
			svc.defaultRange = rangeTier
		}
	}
}

func NewService(r Resolver, a Aggregator, k KeywordResolver, opts ...Option) *Service {
	s := &Service{
		resolver:       r,
		aggregator:     a,
		keywords:       k,
		defaultKeyword: "ラーメン",
		defaultRange:   venue.DefaultRange,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search validates the request, resolves the section and collects venues
// around it. Failures are reported through Outcome and Message; internal
// error details are logged and never returned to the caller.
func (s *Service) Search(ctx context.Context, req Request) Response {
	start := time.Now()
	logger := logging.FromContext(ctx)

	resp, keyword := s.search(ctx, req)

	logging.LogOperation(logger, "search",
		slog.String("line", req.Line),
		slog.String("start", req.Start),
		slog.String("end", req.End),
		slog.String("keyword", keyword),
		slog.String("outcome", string(resp.Outcome)),
		slog.Int("results", len(resp.Results)),
		slog.Duration("duration", time.Since(start)))

	if s.metrics != nil {
		s.metrics.SearchObserve(string(resp.Outcome), time.Since(start))
	}
	if s.events != nil {
		ev := publisher.SearchEvent{
			Line:     strings.TrimSpace(req.Line),
			Start:    route.NormalizeStation(req.Start),
			End:      route.NormalizeStation(req.End),
			Keyword:  keyword,
			Outcome:  string(resp.Outcome),
			Results:  len(resp.Results),
			Stations: len(resp.Section.Stops),
		}
		if err := s.events.PublishSearch(ev); err != nil {
			logging.LogError(logger, "publish search event", err)
		}
	}
	return resp
}

func (s *Service) search(ctx context.Context, req Request) (Response, string) {
	logger := logging.FromContext(ctx)

	rawKeyword := strings.TrimSpace(req.Keyword)
	if rawKeyword == "" {
		rawKeyword = s.defaultKeyword
	}
	rangeTier := req.Range
	if rangeTier == 0 {
		rangeTier = s.defaultRange
	}

	section, err := s.resolver.Resolve(ctx, req.Line, req.Start, req.End)
	if err != nil {
		return s.resolveFailure(ctx, err), rawKeyword
	}

	keyword, err := s.keywords.Resolve(rawKeyword)
	if err != nil {
		return Response{Outcome: OutcomeInvalidInput, Message: fmt.Sprintf(msgUnknownKeyword, rawKeyword), Section: section}, rawKeyword
	}
	if _, ok := venue.RangeMeters(rangeTier); !ok {
		return Response{Outcome: OutcomeInvalidInput, Message: msgBadRange, Section: section}, keyword
	}

	records, err := s.aggregator.Aggregate(ctx, section.Stops, venue.Params{Keyword: keyword, Range: rangeTier})
	if err != nil {
		logging.LogError(logger, "aggregate venues", err, slog.String("line", section.Line))
		if errors.Is(err, apperr.ErrInvalidInput) {
			return Response{Outcome: OutcomeInvalidInput, Message: fmt.Sprintf(msgUnknownKeyword, rawKeyword), Section: section}, keyword
		}
		return Response{Outcome: OutcomeError, Message: msgInternal, Section: section}, keyword
	}
	if len(records) == 0 {
		return Response{Results: []venue.Record{}, Outcome: OutcomeNoResults, Message: msgNoResults, Section: section}, keyword
	}
	return Response{Results: records, Outcome: OutcomeOK, Message: fmt.Sprintf(msgFound, len(records)), Section: section}, keyword
}

func (s *Service) resolveFailure(ctx context.Context, err error) Response {
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		logging.LogError(logging.FromContext(ctx), "resolve section", err)
		return Response{Outcome: OutcomeError, Message: msgInternal}
	}
	switch ve.Kind {
	case apperr.UnknownLine:
		return Response{
			Outcome:     OutcomeUnknownLine,
			Message:     UnknownLineMessage(ve.Value, ve.Suggestions),
			Suggestions: ve.Suggestions,
		}
	case apperr.UnknownStation:
		return Response{
			Outcome:     OutcomeUnknownStation,
			Message:     withSuggestions(fmt.Sprintf(msgUnknownStation, ve.Line, sideLabel(ve.Which), ve.Value), ve.Suggestions),
			Suggestions: ve.Suggestions,
		}
	default:
		return Response{Outcome: OutcomeInvalidInput, Message: msgMissingInput}
	}
}

// SuggestionMessage renders candidates as "もしかして: A、B、C", or "" when
// there are none.
func SuggestionMessage(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return fmt.Sprintf(msgSuggestion, strings.Join(candidates, "、"))
}

// UnknownLineMessage tells the user line is not a known line name.
func UnknownLineMessage(line string, suggestions []string) string {
	return withSuggestions(fmt.Sprintf(msgUnknownLine, line), suggestions)
}

func withSuggestions(base string, candidates []string) string {
	if sm := SuggestionMessage(candidates); sm != "" {
		return base + "。" + sm
	}
	return base
}

func sideLabel(which string) string {
	if which == apperr.End {
		return "降車駅"
	}
	return "乗車駅"
}
