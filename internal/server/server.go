package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const greeting = "Welcome to Sundris Auction House, stranger! How can I call you?"

// readBufferSize bounds one wire message. Messages are unframed: each
// request and each reply is a single read of the stream.
const readBufferSize = 1024

// Server accepts client connections and runs one session per connection.
type Server struct {
	engine        Engine
	orderLifetime time.Duration
}

// New creates a Server over the given storage engine.
func New(engine Engine, orderLifetime time.Duration) *Server {
	return &Server{engine: engine, orderLifetime: orderLifetime}
}

// Serve accepts connections until ctx is canceled. Each connection gets its
// own goroutine; in-flight engine calls run to completion even when the
// peer disconnects mid-operation.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	logger := log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	logger.Debug().Msg("client connected")

	session := &session{conn: conn, buffer: make([]byte, readBufferSize)}
	if err := session.write(greeting); err != nil {
		logger.Debug().Err(err).Msg("connection closed by client")
		return
	}

	// The first successfully processed message is the username; everything
	// after that is commands.
	processor, err := s.loginLoop(ctx, session)
	if err != nil {
		logger.Debug().Err(err).Msg("connection closed by client")
		return
	}
	logger = logger.With().Str("username", processor.user.Username).Logger()
	logger.Info().Msg("client logged in")

	for {
		request, err := session.read()
		if err != nil {
			logger.Debug().Err(err).Msg("connection closed by client")
			return
		}

		reply, err := processor.process(ctx, request)
		if err != nil {
			logger.Debug().Str("request", request).Err(err).Msg("request failed")
			reply = "Failed to process request: " + err.Error()
		}
		if err := session.write(reply); err != nil {
			logger.Debug().Err(err).Msg("connection closed by client")
			return
		}
	}
}

// loginLoop reads usernames until one logs in, reporting failures to the
// client the same way command failures are reported.
func (s *Server) loginLoop(ctx context.Context, session *session) (*commandProcessor, error) {
	for {
		username, err := session.read()
		if err != nil {
			return nil, err
		}

		user, err := s.engine.Login(ctx, username)
		if err != nil {
			if werr := session.write("Failed to process request: " + err.Error()); werr != nil {
				return nil, werr
			}
			continue
		}

		if err := session.write("Successfully logged in as " + user.Username); err != nil {
			return nil, err
		}
		return newCommandProcessor(user, s.engine, s.orderLifetime), nil
	}
}

// session is one client connection with its read buffer.
type session struct {
	conn   net.Conn
	buffer []byte
}

// read returns the next message, right-trimmed of whitespace so interactive
// clients that send a trailing newline work.
func (s *session) read() (string, error) {
	n, err := s.conn.Read(s.buffer)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", errors.New("empty read")
	}
	return strings.TrimRight(string(s.buffer[:n]), " \t\r\n"), nil
}

func (s *session) write(message string) error {
	_, err := s.conn.Write([]byte(message))
	return err
}
