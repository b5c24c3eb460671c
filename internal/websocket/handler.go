package websocket

import (
	"context"

	"floatchat-be/internal/pkg/logger"
	"floatchat-be/internal/service"
	"floatchat-be/pkg/store"
)

// SessionRegistry keeps track of the sessions of open connections.
type SessionRegistry interface {
	Save(session *store.Session)
	Delete(sessionID string)
}

// ServeWs runs a chat connection until the peer goes away. It returns only
// after writePump has stopped, since the connection is recycled once the
// fiber handler returns. A turn still running at that point finishes in the
// background and its frames are dropped.
func ServeWs(conn Conn, chat service.IChatService, sessions SessionRegistry, userID string, log logger.ILogger) {
	session := store.NewSession(userID)
	sessions.Save(session)
	defer sessions.Delete(session.ID)

	log.Info("WS", "Session started", map[string]interface{}{
		"session_id": session.ID,
		"user_id":    userID,
	})

	client := NewClient(conn, session, log)

	written := make(chan struct{})
	go func() {
		defer close(written)
		client.writePump()
	}()
	go client.turnLoop(context.Background(), chat)

	client.readPump()
	<-written

	log.Info("WS", "Session ended", map[string]interface{}{"session_id": session.ID})
}
