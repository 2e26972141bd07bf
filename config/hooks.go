// Copyright (c) 2016 Yandex LLC. All rights reserved.
// Use of this source code is governed by a MPL 2.0
// license that can be found in the LICENSE file.
// Author: Vladimir Skipor <skipor@yandex-team.ru>

package config

import (
	"errors"
	"net"
	"net/url"
	"reflect"

	"github.com/asaskevich/govalidator"
	"github.com/c2h5oh/datasize"
	pkgerrors "github.com/pkg/errors"
)

var ErrInvalidURL = errors.New("string is not valid URL")

var (
	urlPtrType = reflect.TypeOf(&url.URL{})
	urlType    = reflect.TypeOf(url.URL{})
)

// StringToURLHook converts a string field to url.URL or *url.URL.
// Connection has no field of either type.
func StringToURLHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}
	if t != urlPtrType && t != urlType {
		return data, nil
	}
	str := data.(string)

	if !govalidator.IsURL(str) {
		return nil, pkgerrors.WithStack(ErrInvalidURL)
	}
	u, err := url.Parse(str)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	if t == urlType {
		return *u, nil
	}
	return u, nil
}

var ErrInvalidIP = errors.New("string is not valid IP")

// StringToIPHook converts a string field to net.IP. Connection has no
// net.IP field.
func StringToIPHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}
	if t != reflect.TypeOf(net.IP{}) {
		return data, nil
	}
	str := data.(string)
	ip := net.ParseIP(str)
	if ip == nil {
		return nil, pkgerrors.WithStack(ErrInvalidIP)
	}
	return ip, nil
}

// StringToDataSizeHook converts a string field ("64KB") to
// datasize.ByteSize, used by InitialWindowSize.
func StringToDataSizeHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}
	if t != reflect.TypeOf(datasize.B) {
		return data, nil
	}
	var size datasize.ByteSize
	err := size.UnmarshalText([]byte(data.(string)))
	return size, err
}
