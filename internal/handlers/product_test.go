package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comandaapp/comanda/internal/models"
)

func TestCreateAndGetProduct(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &ProductHandler{DB: db}

	c, rec := newJSONContext(e, http.MethodPost, "/api/products",
		`{"name":"Perro Especial","price":8.5,"calories":650,"description":"Con todo","category":"HotDogs"}`)
	require.NoError(t, h.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)
	require.Equal(t, "HotDogs", created.Category)

	c, rec = newJSONContext(e, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(created.ID))
	require.NoError(t, h.GetProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, 8.5, fetched.Price)
}

func TestCreateProductRejectsUnknownCategory(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &ProductHandler{DB: db}

	c, _ := newJSONContext(e, http.MethodPost, "/api/products",
		`{"name":"Sushi","price":15,"category":"Japonesa"}`)
	he := requireStatus(t, h.CreateProduct(c), http.StatusBadRequest)
	require.Contains(t, he.Message.(string), "category")
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &ProductHandler{DB: db}

	c, _ := newJSONContext(e, http.MethodPost, "/api/products",
		`{"name":"Gratis","price":-1,"category":"Bebidas"}`)
	requireStatus(t, h.CreateProduct(c), http.StatusBadRequest)
}

func TestUpdateProduct(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &ProductHandler{DB: db}

	product := models.Product{Name: "Limonada", Price: 3, Category: "Bebidas"}
	require.NoError(t, db.Create(&product).Error)

	c, rec := newJSONContext(e, http.MethodPut, "/",
		`{"name":"Limonada de coco","price":4.5,"calories":180,"category":"Bebidas"}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(product.ID))
	require.NoError(t, h.UpdateProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Product
	require.NoError(t, db.First(&stored, product.ID).Error)
	require.Equal(t, "Limonada de coco", stored.Name)
	require.Equal(t, 4.5, stored.Price)
	require.Equal(t, 180, stored.Calories)
}

func TestUpdateProductNotFound(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &ProductHandler{DB: db}

	c, _ := newJSONContext(e, http.MethodPut, "/",
		`{"name":"Fantasma","price":1,"category":"Especiales"}`)
	c.SetParamNames("id")
	c.SetParamValues("9999")
	requireStatus(t, h.UpdateProduct(c), http.StatusNotFound)
}

func TestDeleteProduct(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &ProductHandler{DB: db}

	product := models.Product{Name: "Empanada", Price: 4, Category: "Entradas"}
	require.NoError(t, db.Create(&product).Error)

	c, rec := newJSONContext(e, http.MethodDelete, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(product.ID))
	require.NoError(t, h.DeleteProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, _ = newJSONContext(e, http.MethodDelete, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(product.ID))
	requireStatus(t, h.DeleteProduct(c), http.StatusNotFound)
}

func TestGetProductsSorted(t *testing.T) {
	db := newTestDB(t)
	e := newEcho()
	h := &ProductHandler{DB: db}

	for _, p := range []models.Product{
		{Name: "B", Price: 2, Category: "Bebidas"},
		{Name: "A", Price: 1, Category: "Entradas"},
	} {
		require.NoError(t, db.Create(&p).Error)
	}

	c, rec := newJSONContext(e, http.MethodGet, "/api/products", "")
	require.NoError(t, h.GetProducts(c))

	var products []models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 2)
	require.Less(t, products[0].ID, products[1].ID)
}
