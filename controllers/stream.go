package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"protocol-review-api/store"
)

// StreamRecords handles Server-Sent Events for live record queries. Each
// event carries the full matching record set, so clients replace rather
// than patch their local view.
func StreamRecords(c *gin.Context) {
	q := store.Query{
		Collection: c.Query("collection"),
		ProtocolID: c.Query("protocol"),
		OwnerID:    c.Query("owner"),
	}
	if statuses := c.Query("status"); statuses != "" {
		q.Statuses = strings.Split(statuses, ",")
	}
	if q.Collection == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection is required"})
		return
	}

	snapshots, err := recordStore.Subscribe(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	for snap := range snapshots {
		if snap.Err != nil {
			payload, _ := json.Marshal(gin.H{"error": snap.Err.Error()})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
			w.Flush()
			return
		}

		payload, err := json.Marshal(gin.H{"records": snap.Records})
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		w.Flush()
	}
}
