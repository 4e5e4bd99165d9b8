package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"railway/internal/domain"
	"railway/internal/services"
)

// OrderHandler serves /api/orders.
type OrderHandler struct {
	Orders *services.OrderService
	Docs   services.DocsService
	// BlockUnpaid rejects a new order while the user still has a pending one.
	BlockUnpaid bool
}

func (h OrderHandler) Create(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.CreateOrderInput
	if !BindJSONOrError(c, &in) {
		return
	}
	in.UserID = uid

	if h.BlockUnpaid {
		unpaid, err := h.Orders.HasUnpaidOrder(c.Request.Context(), uid)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		if unpaid {
			respondError(c, http.StatusConflict, "unpaid_order", "finish or cancel the pending order first", nil)
			return
		}
	}

	receipt, err := h.Orders.CreateOrder(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

func (h OrderHandler) List(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	orders, err := h.Orders.ListOrders(c.Request.Context(), uid)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h OrderHandler) Get(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.Orders.GetOrder(c.Request.Context(), uid, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h OrderHandler) Cancel(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.Orders.CancelOrder(c.Request.Context(), uid, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h OrderHandler) Pay(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.Orders.MarkPaid(c.Request.Context(), uid, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// ETicket renders the order as a PDF.
func (h OrderHandler) ETicket(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pdfBytes, filename, err := h.Docs.GenerateETicket(c.Request.Context(), uid, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// Quote is GET /api/trains/:trainNo/quote?from=&to=&date=.
func (h OrderHandler) Quote(c *gin.Context) {
	from, to, date := c.Query("from"), c.Query("to"), c.Query("date")
	if from == "" || to == "" || date == "" {
		RespondDomainError(c, domain.ValidationError{Field: "query", Msg: "from, to and date are required"})
		return
	}
	q, err := h.Orders.Quote(c.Request.Context(), c.Param("trainNo"), from, to, date)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Search is GET /api/trains?from=&to=&date=&type=.
func (h OrderHandler) Search(c *gin.Context) {
	from, to, date := c.Query("from"), c.Query("to"), c.Query("date")
	if from == "" || to == "" || date == "" {
		RespondDomainError(c, domain.ValidationError{Field: "query", Msg: "from, to and date are required"})
		return
	}
	trains, err := h.Orders.SearchTrains(c.Request.Context(), from, to, date, c.Query("type"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trains": trains})
}
