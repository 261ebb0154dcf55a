package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/4KSHAT0p/voice2text/internal/domain"
	"github.com/4KSHAT0p/voice2text/internal/ports"
)

const closeStreamMessage = `{"type":"CloseStream"}`

// Config controls the Deepgram live-transcription connection.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	Punctuate      bool
	InterimResults bool
	Encoding       string
	SampleRate     int
	Channels       int
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.deepgram.com/v1"
	}
	if c.Model == "" {
		c.Model = "nova-2"
	}
	if c.Encoding == "" {
		c.Encoding = "linear16"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	return c
}

// Channel implements ports.TranscriptionChannel against Deepgram's streaming
// listen endpoint. At most one connection is live at a time.
type Channel struct {
	cfg Config
	log *log.Logger

	mu   sync.Mutex
	live *liveConn
}

func NewChannel(cfg Config, logger *log.Logger) *Channel {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Channel{cfg: cfg.withDefaults(), log: logger}
}

// Connect dials the listen endpoint asynchronously. Exactly one of OnOpen or
// OnError fires per attempt; a second call while a connection is live or
// pending is a logged no-op.
func (c *Channel) Connect(ctx context.Context, handlers ports.ChannelHandlers) {
	c.mu.Lock()
	if c.live != nil {
		c.mu.Unlock()
		c.log.Warn("connect ignored: connection already open or pending")
		return
	}

	dialCtx, cancel := context.WithCancel(ctx)
	live := &liveConn{
		handlers: handlers,
		cancel:   cancel,
		audio:    make(chan []byte, 32),
		log:      c.log,
	}
	c.live = live
	c.mu.Unlock()

	go c.dial(dialCtx, live)
}

func (c *Channel) dial(ctx context.Context, live *liveConn) {
	listenURL, err := buildListenURL(c.cfg)
	if err != nil {
		c.drop(live)
		live.handlers.OnError(domain.ErrorCodeTransport, err.Error())
		return
	}

	// The credential rides the websocket subprotocol, the way browser
	// clients authenticate against this endpoint.
	dialer := websocket.Dialer{Subprotocols: []string{"token", c.cfg.APIKey}}
	conn, _, err := dialer.DialContext(ctx, listenURL, nil)
	if err != nil {
		c.drop(live)
		if !live.closing() {
			live.handlers.OnError(domain.ErrorCodeTransport, fmt.Sprintf("failed to connect to transcription service: %v", err))
		}
		return
	}

	c.mu.Lock()
	if c.live != live {
		// Disconnected while the handshake was in flight.
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	live.conn = conn
	live.ready = true
	c.mu.Unlock()

	c.log.Info("transcription connection opened", "model", c.cfg.Model, "language", c.cfg.Language)
	go live.writeLoop()
	go c.readLoop(live)
	live.handlers.OnOpen()
}

// SendAudio forwards one binary frame to the open connection. Without an
// open connection the chunk is dropped with a log line; the caller never
// sees an error.
func (c *Channel) SendAudio(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	c.mu.Lock()
	live := c.live
	ready := live != nil && live.ready
	c.mu.Unlock()

	if !ready {
		c.log.Debug("dropping audio chunk: no open connection", "bytes", len(chunk))
		return
	}
	live.send(chunk)
}

// Disconnect terminates the stream and closes the connection. Idempotent;
// pending connection attempts are cancelled.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	live := c.live
	c.live = nil
	c.mu.Unlock()

	if live == nil {
		return
	}
	live.shutdown()
}

func (c *Channel) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live != nil && c.live.ready
}

// drop clears a failed pending connection so a new Connect can proceed.
func (c *Channel) drop(live *liveConn) {
	c.mu.Lock()
	if c.live == live {
		c.live = nil
	}
	c.mu.Unlock()
	live.cancel()
}

func (c *Channel) readLoop(live *liveConn) {
	defer live.emitClose()

	for {
		_, payload, err := live.conn.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) && !live.closing() {
				live.handlers.OnError(domain.ErrorCodeTransport, fmt.Sprintf("transcription stream failed: %v", err))
			}
			return
		}

		c.handleFrame(live, payload)
	}
}

// handleFrame decodes one inbound frame. Malformed or unrecognized frames are
// logged and ignored; they never take the channel down.
func (c *Channel) handleFrame(live *liveConn, payload []byte) {
	var msg serverMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.log.Warn("ignoring malformed frame", "err", err)
		return
	}

	switch {
	case strings.EqualFold(msg.Type, "Results"):
		result, ok := msg.toResult()
		if !ok {
			return
		}
		live.handlers.OnTranscript(result)
	case strings.EqualFold(msg.Type, "Error"):
		message := strings.TrimSpace(msg.Message)
		if message == "" {
			message = "transcription service returned an unknown error"
		}
		live.handlers.OnError(domain.ErrorCodeRemote, message)
	default:
		c.log.Debug("ignoring frame", "type", msg.Type)
	}
}

// liveConn is the state of a single connection lifecycle.
type liveConn struct {
	handlers ports.ChannelHandlers
	cancel   context.CancelFunc
	log      *log.Logger

	conn  *websocket.Conn
	ready bool
	audio chan []byte

	sendMu     sync.Mutex
	sendClosed bool

	closeOnce sync.Once
	emitOnce  sync.Once
}

func (l *liveConn) send(chunk []byte) {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()
	if l.sendClosed {
		return
	}

	copied := append([]byte(nil), chunk...)
	select {
	case l.audio <- copied:
	default:
		l.log.Warn("dropping audio chunk: send buffer full", "bytes", len(chunk))
	}
}

// writeLoop drains queued audio in FIFO order, then sends the stream
// termination message once the queue closes.
func (l *liveConn) writeLoop() {
	for chunk := range l.audio {
		if err := l.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			if !l.closing() {
				l.handlers.OnError(domain.ErrorCodeTransport, fmt.Sprintf("failed to send audio: %v", err))
			}
			return
		}
	}

	_ = l.conn.WriteMessage(websocket.TextMessage, []byte(closeStreamMessage))
	_ = l.conn.Close()
}

func (l *liveConn) shutdown() {
	l.closeOnce.Do(func() {
		l.cancel()

		l.sendMu.Lock()
		l.sendClosed = true
		close(l.audio)
		l.sendMu.Unlock()

		// The write loop owns the graceful close; without an established
		// connection the close event is reported from here instead. Never on
		// the caller's goroutine: the close handler may take locks the
		// caller is holding.
		if l.conn == nil {
			go l.emitClose()
		}
	})
}

func (l *liveConn) closing() bool {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()
	return l.sendClosed
}

// emitClose fires OnClose exactly once per connection lifecycle.
func (l *liveConn) emitClose() {
	l.emitOnce.Do(func() {
		if l.handlers.OnClose != nil {
			l.handlers.OnClose()
		}
	})
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

// serverMessage covers the recognized inbound frame shapes.
type serverMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	IsFinal bool   `json:"is_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string     `json:"transcript"`
			Confidence float64    `json:"confidence"`
			Words      []wireWord `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type wireWord struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
}

// toResult converts a Results frame, suppressing empty transcripts.
func (m serverMessage) toResult() (domain.TranscriptionResult, bool) {
	if len(m.Channel.Alternatives) == 0 {
		return domain.TranscriptionResult{}, false
	}

	alt := m.Channel.Alternatives[0]
	text := strings.TrimSpace(alt.Transcript)
	if text == "" {
		return domain.TranscriptionResult{}, false
	}

	result := domain.TranscriptionResult{
		Text:       text,
		IsFinal:    m.IsFinal,
		Confidence: alt.Confidence,
	}
	for _, w := range alt.Words {
		result.Words = append(result.Words, domain.Word{
			Word:           w.Word,
			PunctuatedWord: w.PunctuatedWord,
			Start:          w.Start,
			End:            w.End,
			Confidence:     w.Confidence,
		})
	}
	return result, true
}

func buildListenURL(cfg Config) (string, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid transcription API base URL: %w", err)
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", cfg.Encoding)
	query.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	query.Set("channels", strconv.Itoa(cfg.Channels))
	query.Set("punctuate", strconv.FormatBool(cfg.Punctuate))
	query.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	if cfg.Language != "" {
		query.Set("language", cfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
