package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"shopchat/internal/domain"
)

// Tool names the executor dispatches on. Extend the switch in
// executeToolCall to add a tool.
const (
	toolSearchProducts   = "search_products"
	toolCheckOrderStatus = "check_order_status"
)

// maxSearchResults caps how many products a search renders.
const maxSearchResults = 5

// runToolCall parses the generated text and executes the request. Every
// outcome is plain text for re-injection into the conversation; nothing here
// surfaces as an error.
func (s *Service) runToolCall(ctx context.Context, raw string) string {
	req, err := parseToolCall(raw)
	if err != nil {
		log.Printf("WARN: unparseable tool call: %v", err)
		return "Could not parse tool call from LLM response."
	}
	return s.executeToolCall(ctx, req)
}

// executeToolCall dispatches a parsed request to a business-data lookup and
// renders the result as text.
func (s *Service) executeToolCall(ctx context.Context, req *domain.ToolRequest) string {
	decision, reason, err := s.policyEngine.Evaluate(ctx, map[string]interface{}{
		"tool_name": req.Name,
		"param":     req.Param,
		"value":     req.Value,
	})
	if err != nil {
		return fmt.Sprintf("Error executing tool '%s': %s", req.Name, err)
	}
	if decision == "block" {
		log.Printf("INFO: tool %q blocked by policy: %s", req.Name, reason)
		return fmt.Sprintf("Tool '%s' is not permitted.", req.Name)
	}

	switch req.Name {
	case toolSearchProducts:
		return s.searchProducts(ctx, req.Value)
	case toolCheckOrderStatus:
		orderID, err := strconv.ParseInt(req.Value, 10, 64)
		if err != nil {
			return "Invalid number format for tool parameter: " + req.Value
		}
		return s.checkOrderStatus(ctx, orderID)
	default:
		return "Unknown tool: " + req.Name
	}
}

// searchProducts renders up to maxSearchResults matches of query against
// product name or category.
func (s *Service) searchProducts(ctx context.Context, query string) string {
	products, err := s.store.SearchProducts(ctx, query, maxSearchResults)
	if err != nil {
		return fmt.Sprintf("Error executing tool '%s': %s", toolSearchProducts, err)
	}
	if len(products) == 0 {
		return fmt.Sprintf("No products found matching '%s'.", query)
	}

	var b strings.Builder
	b.WriteString("Found the following products:")
	for _, p := range products {
		fmt.Fprintf(&b, "\n- %s (Brand: %s, Price: $%.2f, Category: %s)",
			p.Name, p.Brand, p.RetailPrice, p.Category)
	}
	return b.String()
}

// checkOrderStatus renders one order's status line.
func (s *Service) checkOrderStatus(ctx context.Context, orderID int64) string {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Sprintf("Error executing tool '%s': %s", toolCheckOrderStatus, err)
	}
	if order == nil {
		return fmt.Sprintf("Order with ID %d not found.", orderID)
	}
	return fmt.Sprintf("Order %d is currently '%s' and was created on %s. It contains %d items.",
		order.ID, order.Status, order.CreatedAt.Format("2006-01-02"), order.NumItems)
}
