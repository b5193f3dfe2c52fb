// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Mehulsingh1010/healthcare/api"
	"github.com/Mehulsingh1010/healthcare/validator"
)

func requestLogger(r *http.Request) logrus.FieldLogger {
	if log, ok := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger); ok {
		return log
	}
	return logrus.StandardLogger()
}

func writeJSON(log logrus.FieldLogger, w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error(err)
	}
}

func renderHTTPError(log logrus.FieldLogger, w http.ResponseWriter, err error, code int) {
	log.WithField("error", err).Error("request error")
	writeJSON(log, w, code, map[string]interface{}{
		"error":       err.Error(),
		"status_code": code,
		"status":      http.StatusText(code),
	})
}

func (fe *frontendServer) homeHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	log.Debug("home")

	products, err := fe.catalog.Products(r.Context())
	if err != nil {
		renderHTTPError(log, w, errors.Wrap(err, "could not retrieve products"), http.StatusInternalServerError)
		return
	}
	writeJSON(log, w, http.StatusOK, map[string]interface{}{
		"products":  products,
		"cart_size": fe.cart.TotalItems(),
		"logged_in": fe.session.IsAuthenticated(),
	})
}

func (fe *frontendServer) productHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	id := mux.Vars(r)["id"]
	if id == "" {
		renderHTTPError(log, w, errors.New("product id not specified"), http.StatusBadRequest)
		return
	}
	log.WithField("id", id).Debug("serving product")

	p, err := fe.catalog.Product(r.Context(), id)
	if err != nil {
		renderHTTPError(log, w, errors.Wrap(err, "could not retrieve product"), http.StatusInternalServerError)
		return
	}
	writeJSON(log, w, http.StatusOK, p)
}

func (fe *frontendServer) searchHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	query := r.URL.Query().Get("q")
	log.WithField("query", query).Info("search")

	var products []api.Product
	if query != "" {
		var err error
		products, err = fe.catalog.Search(r.Context(), query)
		if err != nil {
			log.WithField("error", err).Warn("search failed, returning empty results")
			products = []api.Product{}
		}
	}
	writeJSON(log, w, http.StatusOK, map[string]interface{}{
		"query":        query,
		"result_count": len(products),
		"products":     products,
	})
}

func (fe *frontendServer) viewCartHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	log.Debug("view user cart")

	if err := fe.cart.Load(r.Context(), false); err != nil {
		log.WithField("error", err).Warn("cart refresh failed, serving cached state")
	}
	writeJSON(log, w, http.StatusOK, map[string]interface{}{
		"items":       fe.cart.Items(),
		"total_items": fe.cart.TotalItems(),
		"total_price": fe.cart.TotalPrice(),
	})
}

func (fe *frontendServer) addToCartHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	quantity, _ := strconv.ParseUint(r.FormValue("quantity"), 10, 32)
	if quantity == 0 {
		quantity = 1
	}
	payload := validator.AddToCartPayload{
		ProductID: r.FormValue("product_id"),
		Quantity:  quantity,
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	log.WithField("product", payload.ProductID).Debug("adding to cart")

	p, err := fe.catalog.Product(r.Context(), payload.ProductID)
	if err != nil {
		renderHTTPError(log, w, errors.Wrap(err, "could not retrieve product"), http.StatusInternalServerError)
		return
	}

	if err := fe.cart.Add(r.Context(), *p); err != nil {
		renderHTTPError(log, w, errors.Wrap(err, "failed to add to cart"), http.StatusInternalServerError)
		return
	}

	// The manager pushes sign-in when the user is not authenticated; follow
	// whatever it decided, defaulting to the cart page.
	target := fe.router.Take()
	if target == "" {
		target = baseUrl + "/cart"
	}
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusFound)
}

func (fe *frontendServer) updateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	quantity, err := strconv.ParseInt(r.FormValue("quantity"), 10, 32)
	if err != nil {
		renderHTTPError(log, w, errors.New("invalid quantity"), http.StatusBadRequest)
		return
	}
	payload := validator.UpdateQuantityPayload{
		ProductID: r.FormValue("product_id"),
		Quantity:  quantity,
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	log.WithField("product_id", payload.ProductID).WithField("quantity", quantity).Debug("updating cart item quantity")

	if err := fe.cart.UpdateQuantity(r.Context(), payload.ProductID, int(quantity)); err != nil {
		renderHTTPError(log, w, errors.Wrap(err, "failed to update cart item"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Location", baseUrl+"/cart")
	w.WriteHeader(http.StatusFound)
}

func (fe *frontendServer) removeFromCartHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	payload := validator.RemoveFromCartPayload{ProductID: r.FormValue("product_id")}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	log.WithField("product_id", payload.ProductID).Debug("removing from cart")

	ok, message := fe.cart.Remove(r.Context(), payload.ProductID)
	code := http.StatusOK
	if !ok {
		code = http.StatusBadRequest
	}
	writeJSON(log, w, code, map[string]interface{}{
		"success": ok,
		"message": message,
	})
}

func (fe *frontendServer) emptyCartHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	log.Debug("emptying cart")

	if err := fe.cart.Clear(r.Context()); err != nil {
		renderHTTPError(log, w, errors.Wrap(err, "failed to empty cart"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Location", baseUrl+"/")
	w.WriteHeader(http.StatusFound)
}

func (fe *frontendServer) loginSubmitHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	payload := validator.LoginPayload{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	redirectAfterCart := r.FormValue("redirect") == "cart"

	result := fe.session.Login(r.Context(), payload.Email, payload.Password, redirectAfterCart)
	if !result.Success {
		log.WithField("error", result.Error).Warn("login failed")
		writeJSON(log, w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"error":   result.Error,
		})
		return
	}

	target := fe.router.Take()
	if target == "" {
		target = baseUrl + "/"
	}
	writeJSON(log, w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"redirect": target,
	})
}

func (fe *frontendServer) logoutHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	log.Debug("logging out")

	fe.session.Logout()
	target := fe.router.Take()
	if target == "" {
		target = baseUrl + "/"
	}
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusFound)
}

func (fe *frontendServer) sessionHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)

	authenticated := fe.session.ValidateToken()
	payload := map[string]interface{}{
		"authenticated": authenticated,
	}
	if user := fe.session.CurrentUser(); user != nil {
		payload["user"] = map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
			"name":  user.Name,
		}
	}
	writeJSON(log, w, http.StatusOK, payload)
}
