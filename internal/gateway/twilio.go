package gateway

import (
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wagate/internal/metrics"
)

// twimlResponse is the gateway's reply markup: the reply rides back in the
// HTTP response body instead of a separate send call.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// ginTwilio handles the third-party-gateway variant: inbound messages arrive
// as form-encoded From/Body fields and the reply is returned synchronously
// as XML.
func (s *Server) ginTwilio(c *gin.Context) {
	from := strings.TrimPrefix(c.PostForm("From"), "whatsapp:")
	body := c.PostForm("Body")

	if from == "" || body == "" {
		metrics.InboundTotal.WithLabelValues("noop").Inc()
		c.Data(http.StatusOK, "text/xml", []byte(xml.Header+"<Response></Response>"))
		return
	}

	metrics.InboundTotal.WithLabelValues("message").Inc()
	reply := s.Bot.Reply(c.Request.Context(), from, body)

	out, err := xml.Marshal(twimlResponse{Message: reply})
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/xml", append([]byte(xml.Header), out...))
}
